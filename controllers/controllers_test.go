package controllers_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meinhoongagan/tutor-sessions/controllers"
	"github.com/meinhoongagan/tutor-sessions/middleware"
	"github.com/meinhoongagan/tutor-sessions/models"
	"github.com/meinhoongagan/tutor-sessions/notify"
	"github.com/meinhoongagan/tutor-sessions/otp"
	"github.com/meinhoongagan/tutor-sessions/routes"
	"github.com/meinhoongagan/tutor-sessions/services/billing"
	"github.com/meinhoongagan/tutor-sessions/services/handshake"
	"github.com/meinhoongagan/tutor-sessions/services/negotiation"
	"github.com/meinhoongagan/tutor-sessions/store/memstore"
)

const secret = "controller-secret"

var (
	tutor   = models.Actor{ID: 10, Role: models.RoleTutor}
	student = models.Actor{ID: 20, Role: models.RoleStudent}
)

type client struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func newApp(t *testing.T, threshold int) *fiber.App {
	t.Helper()
	st := memstore.New()
	rec := &notify.Recorder{}
	neg := negotiation.New(st, rec)
	bill := billing.New(st, rec, otp.NewMemoryLimiter(time.Hour), billing.Config{
		Threshold: threshold, TokenTTL: time.Minute, Secret: []byte(secret),
	})
	hs := handshake.New(st, bill, otp.NewMemoryLimiter(time.Hour), rec, handshake.Config{
		CodeTTL: 15 * time.Minute, MaxAttempts: 5, SessionDuration: time.Hour,
	})

	app := fiber.New()
	routes.Setup(app, secret, &routes.Handlers{
		Appointments: controllers.NewAppointmentController(neg),
		Sessions:     controllers.NewSessionController(hs),
		Contracts:    controllers.NewContractController(bill),
		Events:       controllers.NewEventsController(st, neg, bill),
	})
	return app
}

func as(t *testing.T, app *fiber.App, actor models.Actor) *client {
	token, err := middleware.GenerateToken(secret, actor, time.Hour)
	require.NoError(t, err)
	return &client{t: t, app: app, token: token}
}

func (c *client) do(method, path string, body interface{}, out interface{}) int {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAppointmentFlow(t *testing.T) {
	app := newApp(t, 8)
	tc, sc := as(t, app, tutor), as(t, app, student)
	ref := map[string]uint{"application_id": 3, "tutor_id": 10, "student_id": 20}

	var a models.Appointment
	require.Equal(t, fiber.StatusOK, sc.do("POST", "/appointments", ref, &a))
	assert.Equal(t, models.StatusNegotiating, a.Status)
	base := "/appointments/" + itoa(a.ID)

	slot := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)
	require.Equal(t, fiber.StatusOK, tc.do("POST", base+"/propose", map[string]time.Time{"proposed_date": slot}, &a))
	assert.Equal(t, fiber.StatusConflict, tc.do("POST", base+"/accept", nil, nil))
	require.Equal(t, fiber.StatusOK, sc.do("POST", base+"/accept", nil, &a))
	assert.Equal(t, models.StatusConfirmed, a.Status)

	assert.Equal(t, fiber.StatusFailedDependency, sc.do("POST", base+"/location", map[string]string{"error": "denied"}, nil))
	require.Equal(t, fiber.StatusOK, sc.do("POST", base+"/location", map[string]float64{"lat": 5.6, "lng": -0.2}, &a))
	require.NotNil(t, a.StudentLat)
	assert.Equal(t, fiber.StatusBadRequest, sc.do("POST", base+"/location", map[string]string{}, nil))

	assert.Equal(t, fiber.StatusForbidden, sc.do("POST", base+"/start-otp", nil, nil))
	require.Equal(t, fiber.StatusOK, tc.do("POST", base+"/start-otp", nil, &a))
	require.NotNil(t, a.StartOTP)
	code := *a.StartOTP

	var seen models.Appointment
	require.Equal(t, fiber.StatusOK, sc.do("GET", base, nil, &seen))
	assert.Nil(t, seen.StartOTP, "students never see the code")

	wrong := "0000"
	if code == wrong {
		wrong = "1111"
	}
	assert.Equal(t, fiber.StatusUnprocessableEntity, sc.do("POST", base+"/verify-start", map[string]string{"code": wrong}, nil))
	assert.Equal(t, fiber.StatusBadRequest, sc.do("POST", base+"/verify-start", map[string]string{"code": "12"}, nil))
	require.Equal(t, fiber.StatusOK, sc.do("POST", base+"/verify-start", map[string]string{"code": code}, &a))
	assert.Equal(t, models.StatusOngoing, a.Status)
	assert.Equal(t, models.PaymentEscrowLocked, a.PaymentStatus)

	var timer map[string]interface{}
	require.Equal(t, fiber.StatusOK, tc.do("GET", base+"/timer", nil, &timer))
	assert.Equal(t, true, timer["started"])

	var report models.Report
	require.Equal(t, fiber.StatusCreated, sc.do("POST", base+"/report", map[string]string{"reason": "late"}, &report))
	assert.Equal(t, tutor.ID, report.ReportedID)
	require.Equal(t, fiber.StatusOK, tc.do("POST", base+"/retry", nil, &a))
	assert.Equal(t, models.StatusOngoing, a.Status)

	require.Equal(t, fiber.StatusOK, tc.do("POST", base+"/end-otp", nil, &a))
	require.Equal(t, fiber.StatusOK, sc.do("POST", base+"/verify-end", map[string]string{"code": *a.EndOTP}, &a))
	assert.Equal(t, models.StatusCompleted, a.Status)
	assert.Equal(t, models.PaymentPaid, a.PaymentStatus)

	var list []models.Appointment
	require.Equal(t, fiber.StatusOK, tc.do("GET", "/appointments?status=completed", nil, &list))
	assert.Len(t, list, 1)

	stranger := as(t, app, models.Actor{ID: 99, Role: models.RoleStudent})
	assert.Equal(t, fiber.StatusForbidden, stranger.do("GET", base, nil, nil))
	assert.Equal(t, fiber.StatusNotFound, tc.do("GET", "/appointments/999", nil, nil))
	assert.Equal(t, fiber.StatusBadRequest, tc.do("GET", "/appointments/abc", nil, nil))
}

func TestContractFlow(t *testing.T) {
	app := newApp(t, 2)
	tc, sc := as(t, app, tutor), as(t, app, student)

	var ct models.Contract
	assert.Equal(t, fiber.StatusForbidden, tc.do("POST", "/contracts", map[string]interface{}{"tutor_id": 10, "monthly_fee": 100}, nil))
	require.Equal(t, fiber.StatusCreated, sc.do("POST", "/contracts", map[string]interface{}{"tutor_id": 10, "monthly_fee": 100}, &ct))
	base := "/contracts/" + itoa(ct.ID)
	require.Equal(t, fiber.StatusOK, tc.do("POST", base+"/accept", nil, &ct))
	assert.Equal(t, models.ContractActive, ct.Status)

	assert.Equal(t, fiber.StatusForbidden, tc.do("POST", base+"/attendance", nil, nil))
	require.Equal(t, fiber.StatusOK, sc.do("POST", base+"/attendance", nil, &ct))
	assert.Equal(t, 1, ct.ClassesCompleted)

	var tok map[string]interface{}
	require.Equal(t, fiber.StatusOK, tc.do("POST", base+"/attendance-token", nil, &tok))
	require.Equal(t, fiber.StatusOK, sc.do("POST", "/contracts/attendance-token/redeem", map[string]interface{}{"token": tok["token"]}, &ct))
	assert.Equal(t, 2, ct.ClassesCompleted)
	assert.True(t, ct.PaymentDue)

	assert.Equal(t, fiber.StatusPaymentRequired, sc.do("POST", base+"/attendance", nil, nil))
	assert.Equal(t, fiber.StatusPaymentRequired, tc.do("POST", base+"/sessions", map[string]time.Time{"proposed_date": time.Now().Add(time.Hour)}, nil))

	require.Equal(t, fiber.StatusOK, sc.do("POST", base+"/pay", nil, &ct))
	assert.False(t, ct.PaymentDue)
	assert.Equal(t, fiber.StatusConflict, sc.do("POST", base+"/pay", nil, nil))

	var a models.Appointment
	require.Equal(t, fiber.StatusCreated, tc.do("POST", base+"/sessions", map[string]time.Time{"proposed_date": time.Now().Add(time.Hour)}, &a))
	assert.Equal(t, models.StatusScheduled, a.Status)

	var att []models.Attendance
	require.Equal(t, fiber.StatusOK, tc.do("GET", base+"/attendance", nil, &att))
	assert.Len(t, att, 2)

	require.Equal(t, fiber.StatusOK, tc.do("POST", base+"/complete", nil, &ct))
	assert.Equal(t, models.ContractCompleted, ct.Status)

	var list []models.Contract
	require.Equal(t, fiber.StatusOK, sc.do("GET", "/contracts", nil, &list))
	assert.Len(t, list, 1)
}

func TestUnauthenticated(t *testing.T) {
	app := newApp(t, 8)
	resp, err := app.Test(httptest.NewRequest("GET", "/appointments", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
