package template

// protectedKinds classifies resource kinds the engine must never delete.
// Classification is static: it is a property of the kind, not of runtime
// configuration, so the safety guarantee cannot be disabled by config drift.
var protectedKinds = map[string]bool{
	// Object-storage buckets accumulate data (logs) that must outlive
	// redeploys of the add-on stack.
	KindBucket: true,
}

// IsProtectedKind reports whether resources of the given kind are created
// but never deleted by the engine. The apply engine consults this before
// issuing any delete call.
func IsProtectedKind(kind string) bool {
	return protectedKinds[kind]
}
