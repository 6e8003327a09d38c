package clog

type Level int

const (
	LevelDebug Level = iota + 1
	LevelInfo
	LevelWarn
	LevelError
)

// HTTPStatusToLevel picks the access-log level for a response status.
// 499 (client closed the connection) stays at info since it is not a
// server fault.
func HTTPStatusToLevel(status int) Level {
	switch {
	case status >= 500:
		return LevelError
	case status == 499:
		return LevelInfo
	case status >= 400:
		return LevelWarn
	case status >= 100:
		return LevelInfo
	default:
		return LevelError
	}
}
