package kv

// check evaluates cond against the currently stored item, which is nil when
// nothing is stored under the key.
func (c Condition) check(current *Item) error {
	if c.MustNotExist && current != nil {
		return ErrConditionFailed
	}
	if current == nil {
		if c.requiresExisting() {
			return ErrConditionFailed
		}
		return nil
	}
	if c.Version != 0 && current.Version != c.Version {
		return ErrConditionFailed
	}
	if c.StatusNot != "" && current.Status == c.StatusNot {
		return ErrConditionFailed
	}
	return nil
}
