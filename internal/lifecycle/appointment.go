// Package lifecycle defines the finite state machines for appointments and
// medicine orders: which status transitions exist, which actor role may
// perform each one, and which side effects a committed transition triggers.
// Handlers consult these tables before writing anything; a transition absent
// from the table fails with ErrInvalidTransition and must not touch stored
// state. The actual status write is guarded on the expected current status
// so a racing transition surfaces as ErrConflictingTransition instead of a
// lost update.
package lifecycle

import (
	"errors"

	"careconnect-server/internal/models"
)

var (
	// ErrInvalidTransition is returned when the requested (from, to, actor)
	// triple is not in the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflictingTransition is returned when the record's status changed
	// between the precondition read and the guarded write.
	ErrConflictingTransition = errors.New("conflicting concurrent transition")
)

// AppointmentTransition describes one permitted edge of the appointment
// state machine together with its side effects.
type AppointmentTransition struct {
	From           models.AppointmentStatus
	To             models.AppointmentStatus
	Actors         []models.Role
	Notification   models.NotificationType
	RecordsReason  bool // cancellation reason is captured on commit
	NotifyPatient  bool
	NotifyDoctor   bool
	NotifyOpposite bool // notify whichever party did not act
}

var appointmentTransitions = []AppointmentTransition{
	{
		From:          models.AppointmentPending,
		To:            models.AppointmentReceived,
		Actors:        []models.Role{models.RoleDoctor},
		Notification:  models.NotificationAppointmentUpdate,
		NotifyPatient: true,
	},
	{
		From:           models.AppointmentPending,
		To:             models.AppointmentCancelled,
		Actors:         []models.Role{models.RolePatient, models.RoleDoctor},
		Notification:   models.NotificationAppointmentUpdate,
		RecordsReason:  true,
		NotifyOpposite: true,
	},
	{
		From:          models.AppointmentReceived,
		To:            models.AppointmentCompleted,
		Actors:        []models.Role{models.RoleDoctor},
		Notification:  models.NotificationAppointmentUpdate,
		NotifyPatient: true,
	},
	{
		From:           models.AppointmentReceived,
		To:             models.AppointmentCancelled,
		Actors:         []models.Role{models.RolePatient, models.RoleDoctor},
		Notification:   models.NotificationAppointmentUpdate,
		RecordsReason:  true,
		NotifyOpposite: true,
	},
}

// AppointmentTerminal reports whether no further transition is permitted
// from s.
func AppointmentTerminal(s models.AppointmentStatus) bool {
	return s == models.AppointmentCompleted || s == models.AppointmentCancelled
}

// AppointmentTransitionFor looks up the transition for (from, to) performed
// by actor. It returns ErrInvalidTransition when no such edge exists or the
// actor role is not permitted to take it.
func AppointmentTransitionFor(from, to models.AppointmentStatus, actor models.Role) (AppointmentTransition, error) {
	for _, t := range appointmentTransitions {
		if t.From != from || t.To != to {
			continue
		}
		for _, a := range t.Actors {
			if a == actor {
				return t, nil
			}
		}
		return AppointmentTransition{}, ErrInvalidTransition
	}
	return AppointmentTransition{}, ErrInvalidTransition
}

// NotifyTarget resolves which party receives the side-effect notification:
// the patient, the doctor, or the counterparty of whoever acted.
func (t AppointmentTransition) NotifyTarget(actor models.Role, patientID, doctorID string) string {
	switch {
	case t.NotifyPatient:
		return patientID
	case t.NotifyDoctor:
		return doctorID
	case t.NotifyOpposite:
		if actor == models.RoleDoctor {
			return patientID
		}
		return doctorID
	}
	return ""
}
