package service

import "fmt"

// DuplicateServiceError is returned by Registry.Register when a service with
// the same name is already registered.
type DuplicateServiceError struct {
	Name string
}

func (e *DuplicateServiceError) Error() string {
	return fmt.Sprintf("service %q already registered", e.Name)
}

// UnknownServiceError is returned by Registry.Get for names that were never
// registered.
type UnknownServiceError struct {
	Name string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("unknown service %q", e.Name)
}
