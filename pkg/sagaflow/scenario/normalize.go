package scenario

import (
	"fmt"

	sferrors "github.com/randalmurphal/sagaflow/pkg/sagaflow/errors"
)

// Normalize applies defaults and validates a parsed scenario document
// in place: version defaults to 1 when absent; unknown
// top-level keys are rejected by the decoder before Normalize ever
// runs; domain ids, queue names, and event names must be unique; every
// listener's on.event, emitted event, and toDomain must reference a
// declared name. All issues are collected and returned together as one
// configuration-category error built by errors.JoinConfiguration; each
// issue inside it is an *errors.ConfigurationError carrying a dotted path.
func Normalize(s *Scenario) error {
	if s.Version == 0 {
		s.Version = 1
	}

	var issues []error

	if err := validatorInstance().Struct(s); err != nil {
		issues = append(issues, translateValidationError(err)...)
	}

	domainIDs := make(map[string]int)  // id -> first index
	queueNames := make(map[string]int) // queue -> first index
	for i, d := range s.Domains {
		if first, dup := domainIDs[d.ID]; dup {
			issues = append(issues, &sferrors.ConfigurationError{
				Path:    fmt.Sprintf("domains[%d].id", i),
				Message: fmt.Sprintf("duplicate domain id %q, first declared at domains[%d]", d.ID, first),
			})
		} else if d.ID != "" {
			domainIDs[d.ID] = i
		}

		if first, dup := queueNames[d.Queue]; dup {
			issues = append(issues, &sferrors.ConfigurationError{
				Path:    fmt.Sprintf("domains[%d].queue", i),
				Message: fmt.Sprintf("duplicate queue name %q, first declared at domains[%d]", d.Queue, first),
			})
		} else if d.Queue != "" {
			queueNames[d.Queue] = i
		}
	}

	eventNames := make(map[string]int)
	for i, e := range s.Events {
		if first, dup := eventNames[e.Name]; dup {
			issues = append(issues, &sferrors.ConfigurationError{
				Path:    fmt.Sprintf("events[%d].name", i),
				Message: fmt.Sprintf("duplicate event name %q, first declared at events[%d]", e.Name, first),
			})
		} else if e.Name != "" {
			eventNames[e.Name] = i
		}
	}

	for i, l := range s.Listeners {
		if l.On.Event != "" {
			if _, ok := eventNames[l.On.Event]; !ok {
				issues = append(issues, &sferrors.ConfigurationError{
					Path:    fmt.Sprintf("listeners[%d].on.event", i),
					Message: fmt.Sprintf("references undeclared event %q", l.On.Event),
				})
			}
		}

		for j, a := range l.Actions {
			path := fmt.Sprintf("listeners[%d].actions[%d]", i, j)

			switch a.Type {
			case ActionSetState:
				if a.Domain != "" {
					if _, ok := domainIDs[a.Domain]; !ok {
						issues = append(issues, &sferrors.ConfigurationError{
							Path:    path + ".domain",
							Message: fmt.Sprintf("references undeclared domain %q", a.Domain),
						})
					}
				}

			case ActionEmit:
				if a.Event != "" {
					if _, ok := eventNames[a.Event]; !ok {
						issues = append(issues, &sferrors.ConfigurationError{
							Path:    path + ".event",
							Message: fmt.Sprintf("references undeclared event %q", a.Event),
						})
					}
				}
				if a.ToDomain != "" {
					if _, ok := domainIDs[a.ToDomain]; !ok {
						issues = append(issues, &sferrors.ConfigurationError{
							Path:    path + ".toDomain",
							Message: fmt.Sprintf("references undeclared domain %q", a.ToDomain),
						})
					}
				}
			}
		}
	}

	return sferrors.JoinConfiguration(issues...)
}
