package formflow

import "context"

// Validator inspects a values snapshot and reports findings per field
// key. A nil (or empty) result means the validator found nothing. The
// error return is for fatal failures only (a validator that cannot run
// at all) and aborts the whole validation run.
//
// Validators must treat the snapshot as read-only.
type Validator func(ctx context.Context, values Values) (Errors, error)

// ErrorAwareValidator is a validator that additionally receives the
// findings merged from the run's synchronous pure validators, letting it
// refine or depend on them. The prior map must be treated as read-only.
type ErrorAwareValidator func(ctx context.Context, values Values, prior Errors) (Errors, error)

// ValidatorOption configures a validator registration.
type ValidatorOption func(*validatorConfig)

type validatorConfig struct {
	async bool
}

// WithAsync runs the validator on its own goroutine during each
// validation run. The run's terminal event waits for every asynchronous
// validator to finish. Synchronous validators (the default) run inline
// on the goroutine that triggered the run.
func WithAsync() ValidatorOption {
	return func(c *validatorConfig) {
		c.async = true
	}
}

// validatorEntry is one registration. Exactly one of pure and errAware
// is set. The index is the global registration position across both
// kinds and fixes the merge order of results.
type validatorEntry struct {
	index    int
	async    bool
	pure     Validator
	errAware ErrorAwareValidator
}
