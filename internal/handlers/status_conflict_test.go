package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"careconnect-server/internal/config"
	"careconnect-server/internal/models"
	"careconnect-server/internal/realtime"
)

// nopPublisher swallows events; these tests never reach the publish step.
type nopPublisher struct{}

func (nopPublisher) Publish(realtime.Event) {}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func newStatusRequest(t *testing.T, id, userID, role, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	req, err := http.NewRequest(http.MethodPatch, "/", bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: id}}
	c.Set("userID", userID)
	c.Set("userRole", models.Role(role))
	return c, recorder
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestUpdateAppointmentStatusRacingTransitionConflicts(t *testing.T) {
	db, mock := newMockDB(t)
	handler := NewAppointmentHandler(db, nopPublisher{}, quietLogger())

	mock.ExpectQuery(`SELECT .* FROM .appointments. WHERE id = \?`).
		WithArgs("appt-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "doctor_id", "date", "time_slot", "status"}).
			AddRow("appt-1", "patient-1", "doctor-1", "2026-09-10", "10:00 AM", "pending"))

	// Another writer already moved the row off pending, so the guarded
	// update matches nothing.
	mock.ExpectExec(`UPDATE .appointments. SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	c, recorder := newStatusRequest(t, "appt-1", "doctor-1", "doctor", `{"status":"received"}`)
	handler.UpdateAppointmentStatus(c)

	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "conflicting concurrent transition")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAppointmentStatusCommitsWhenUnchanged(t *testing.T) {
	db, mock := newMockDB(t)
	handler := NewAppointmentHandler(db, nopPublisher{}, quietLogger())

	mock.ExpectQuery(`SELECT .* FROM .appointments. WHERE id = \?`).
		WithArgs("appt-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "doctor_id", "date", "time_slot", "status"}).
			AddRow("appt-1", "patient-1", "doctor-1", "2026-09-10", "10:00 AM", "pending"))
	mock.ExpectExec(`UPDATE .appointments. SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Acknowledgement notification written after the committed transition.
	mock.ExpectExec(`INSERT INTO .notifications.`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, recorder := newStatusRequest(t, "appt-1", "doctor-1", "doctor", `{"status":"received"}`)
	handler.UpdateAppointmentStatus(c)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"received"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusRacingTransitionRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	handler := NewOrderHandler(db, &config.Config{}, nopPublisher{}, quietLogger())

	mock.ExpectQuery(`SELECT .* FROM .orders. WHERE id = \?`).
		WithArgs("order-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_id", "pharmacy_id", "total", "status"}).
			AddRow("order-1", "patient-1", "pharmacy-1", "24.50", "pending"))
	mock.ExpectQuery(`SELECT .* FROM .order_items. WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "medicine_id", "quantity", "price"}))

	// The guarded update inside the transaction matches nothing, so the
	// whole transaction rolls back and no inventory is touched.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE .orders. SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	c, recorder := newStatusRequest(t, "order-1", "pharmacy-1", "pharmacy", `{"status":"preparing"}`)
	handler.UpdateOrderStatus(c)

	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "conflicting concurrent transition")
	assert.NoError(t, mock.ExpectationsWereMet())
}
