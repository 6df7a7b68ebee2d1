package meshclock

// LogPrintf is the shape of a diagnostic trace function, same signature as
// sx1231/sx1276's logger hook and compatible with log.Printf. Diagnostic
// output is informational only per §6: its presence, absence, or format is
// not part of the protocol.
type LogPrintf func(format string, v ...interface{})

// nopLog is the default used when a Core is constructed without a Logger:
// it discards everything, same as sx1231.New's default.
func nopLog(string, ...interface{}) {}

// prefixed wraps a LogPrintf with a "meshclock: " prefix, same pattern as
// sx1231.New's `r.log = func(format string, v ...interface{}) {
// opts.Logger("sx1231: "+format, v...) }`. Returns nopLog if log is nil.
func prefixed(log LogPrintf) LogPrintf {
	if log == nil {
		return nopLog
	}
	return func(format string, v ...interface{}) {
		log("meshclock: "+format, v...)
	}
}
