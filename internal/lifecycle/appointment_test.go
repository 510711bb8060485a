package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careconnect-server/internal/models"
)

func TestAppointmentTransitionFor(t *testing.T) {
	tests := []struct {
		name    string
		from    models.AppointmentStatus
		to      models.AppointmentStatus
		actor   models.Role
		wantErr bool
	}{
		{"doctor confirms pending", models.AppointmentPending, models.AppointmentReceived, models.RoleDoctor, false},
		{"patient cannot confirm", models.AppointmentPending, models.AppointmentReceived, models.RolePatient, true},
		{"patient cancels pending", models.AppointmentPending, models.AppointmentCancelled, models.RolePatient, false},
		{"doctor cancels pending", models.AppointmentPending, models.AppointmentCancelled, models.RoleDoctor, false},
		{"doctor completes received", models.AppointmentReceived, models.AppointmentCompleted, models.RoleDoctor, false},
		{"patient cannot complete", models.AppointmentReceived, models.AppointmentCompleted, models.RolePatient, true},
		{"patient cancels received", models.AppointmentReceived, models.AppointmentCancelled, models.RolePatient, false},
		{"doctor cancels received", models.AppointmentReceived, models.AppointmentCancelled, models.RoleDoctor, false},
		{"pending cannot jump to completed", models.AppointmentPending, models.AppointmentCompleted, models.RoleDoctor, true},
		{"completed is terminal", models.AppointmentCompleted, models.AppointmentCancelled, models.RoleDoctor, true},
		{"cancelled is terminal", models.AppointmentCancelled, models.AppointmentReceived, models.RoleDoctor, true},
		{"cancelled cannot be completed", models.AppointmentCancelled, models.AppointmentCompleted, models.RoleDoctor, true},
		{"no self loop", models.AppointmentPending, models.AppointmentPending, models.RoleDoctor, true},
		{"pharmacy has no appointment edges", models.AppointmentPending, models.AppointmentCancelled, models.RolePharmacy, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := AppointmentTransitionFor(tt.from, tt.to, tt.actor)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.from, tr.From)
			assert.Equal(t, tt.to, tr.To)
		})
	}
}

func TestAppointmentCancellationRecordsReason(t *testing.T) {
	tr, err := AppointmentTransitionFor(models.AppointmentPending, models.AppointmentCancelled, models.RolePatient)
	require.NoError(t, err)
	assert.True(t, tr.RecordsReason)

	tr, err = AppointmentTransitionFor(models.AppointmentReceived, models.AppointmentCancelled, models.RoleDoctor)
	require.NoError(t, err)
	assert.True(t, tr.RecordsReason)

	tr, err = AppointmentTransitionFor(models.AppointmentPending, models.AppointmentReceived, models.RoleDoctor)
	require.NoError(t, err)
	assert.False(t, tr.RecordsReason)
}

func TestAppointmentTerminal(t *testing.T) {
	assert.False(t, AppointmentTerminal(models.AppointmentPending))
	assert.False(t, AppointmentTerminal(models.AppointmentReceived))
	assert.True(t, AppointmentTerminal(models.AppointmentCompleted))
	assert.True(t, AppointmentTerminal(models.AppointmentCancelled))
}

func TestNotifyTarget(t *testing.T) {
	const patientID, doctorID = "patient-1", "doctor-1"

	// Confirmation notifies the patient.
	tr, err := AppointmentTransitionFor(models.AppointmentPending, models.AppointmentReceived, models.RoleDoctor)
	require.NoError(t, err)
	assert.Equal(t, patientID, tr.NotifyTarget(models.RoleDoctor, patientID, doctorID))

	// Cancellation notifies whoever did not cancel.
	tr, err = AppointmentTransitionFor(models.AppointmentPending, models.AppointmentCancelled, models.RolePatient)
	require.NoError(t, err)
	assert.Equal(t, doctorID, tr.NotifyTarget(models.RolePatient, patientID, doctorID))
	assert.Equal(t, patientID, tr.NotifyTarget(models.RoleDoctor, patientID, doctorID))
}
