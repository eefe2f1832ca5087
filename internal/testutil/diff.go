package testutil

// PrintWantGot formats a cmp.Diff(want, got) result for test failures.
func PrintWantGot(diff string) string {
	return "(-want +got):\n" + diff
}
