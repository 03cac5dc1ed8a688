// File: utils/constants.go
package utils

// SessionKeyPrefix is the prefix used for Redis flow-session keys.
const SessionKeyPrefix = "flow:"

// DateFormat is the wire format for calendar dates (clinic-local).
const DateFormat = "2006-01-02"

// MonthFormat is the wire format for calendar months.
const MonthFormat = "2006-01"
