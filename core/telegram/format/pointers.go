package format

// DerefInt returns *i or def when i is nil.
func DerefInt(i *int, def int) int {
	if i != nil {
		return *i
	}
	return def
}

// DerefInt64 returns *i or def when i is nil.
func DerefInt64(i *int64, def int64) int64 {
	if i != nil {
		return *i
	}
	return def
}
