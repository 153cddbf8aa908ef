package services

import "errors"

var (
	ErrNoArrival        = errors.New("no letter has arrived")
	ErrArrivalNotOpened = errors.New("letter has not been opened yet")
	ErrBusy             = errors.New("operation already in progress")
)
