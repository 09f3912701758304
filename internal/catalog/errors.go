package catalog

import stderrors "errors"

// joinErrors keeps a single failure unwrapped so callers can errors.As it
// directly, and joins several.
func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	return stderrors.Join(errs...)
}
