package domain

import "strings"

type PidStatus string

const (
	RUNNING PidStatus = "RUNNING"
	SLEEP   PidStatus = "SLEEP"
	STOP    PidStatus = "STOP"
	IDLE    PidStatus = "IDLE"
	ZOMBIE  PidStatus = "ZOMBIE"
	WAIT    PidStatus = "WAIT"
	LOCK    PidStatus = "LOCK"
	UNKNOWN PidStatus = "UNKNOWN"
)

// ToStatus maps a process status, as a one-letter code ("R") or a word ("running").
func ToStatus(status string) PidStatus {
	switch strings.ToLower(status) {
	case "r", "running":
		return RUNNING
	case "s", "sleep":
		return SLEEP
	case "t", "stop":
		return STOP
	case "i", "idle":
		return IDLE
	case "z", "zombie":
		return ZOMBIE
	case "w", "wait":
		return WAIT
	case "l", "lock":
		return LOCK
	default:
		return UNKNOWN
	}
}
