package alert

// applyOptimistic runs mutate, then persist. If persist fails the inverse
// patch is applied and the error returned, so a failed remote update never
// leaves state changed only in memory.
func applyOptimistic(mutate func(), persist func() error, revert func()) error {
	mutate()
	if err := persist(); err != nil {
		revert()
		return err
	}
	return nil
}
