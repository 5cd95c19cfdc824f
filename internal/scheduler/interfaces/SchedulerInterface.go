package interfaces

import "time"

type Status struct {
	State       string
	NextPoll    time.Time
	LastCycleAt time.Time
	LastOutcome string
}

type SchedulerInterface interface {
	Init()
	Stop()
	Restore()
	Status() Status
}
