package notify

import (
	"fmt"
	"time"

	"github.com/meinhoongagan/tutor-sessions/models"
)

const timeLayout = "Mon 02 Jan 2006 15:04 MST"

func when(t *time.Time) string {
	if t == nil {
		return "an unspecified time"
	}
	return t.Format(timeLayout)
}

func Proposed(a *models.Appointment) Message {
	return Message{
		Subject: "New session time proposed",
		Body: fmt.Sprintf(`
		<p>A new time has been proposed for appointment #%d.</p>
		<p><strong>Proposed time:</strong> %s</p>
		<p>Open the app to accept it or suggest another time.</p>
	`, a.ID, when(a.ProposedDate)),
	}
}

func Confirmed(a *models.Appointment) Message {
	return Message{
		Subject: "Session confirmed",
		Body: fmt.Sprintf(`
		<p>Appointment #%d is confirmed for %s.</p>
		<p>Share your location when you set off so your counterpart can find you.</p>
	`, a.ID, when(a.ProposedDate)),
	}
}

func Cancelled(a *models.Appointment) Message {
	return Message{
		Subject: "Session cancelled",
		Body:    fmt.Sprintf(`<p>Appointment #%d has been cancelled.</p>`, a.ID),
	}
}

func Reminder(a *models.Appointment) Message {
	return Message{
		Subject: "Reminder: session in one hour",
		Body: fmt.Sprintf(`
		<p>This is a reminder for your upcoming session scheduled in one hour.</p>
		<ul>
			<li><strong>Appointment:</strong> #%d</li>
			<li><strong>Start time:</strong> %s</li>
			<li><strong>Status:</strong> %s</li>
		</ul>
		<p>The tutor will read out a start code when you meet.</p>
	`, a.ID, when(a.ProposedDate), a.Status),
	}
}

func Reported(a *models.Appointment) Message {
	return Message{
		Subject: "A report was filed about your session",
		Body:    fmt.Sprintf(`<p>Appointment #%d was reported and is under review.</p>`, a.ID),
	}
}

func ContractProposed(c *models.Contract) Message {
	return Message{
		Subject: "New tuition proposal",
		Body:    fmt.Sprintf(`<p>You received tuition proposal #%d at %.2f per cycle.</p>`, c.ID, c.MonthlyFee),
	}
}

func ContractUpdated(c *models.Contract) Message {
	return Message{
		Subject: fmt.Sprintf("Tuition contract %s", c.Status),
		Body:    fmt.Sprintf(`<p>Contract #%d is now %s.</p>`, c.ID, c.Status),
	}
}

func PaymentDue(c *models.Contract) Message {
	return Message{
		Subject: "Payment due",
		Body: fmt.Sprintf(`
		<p>Contract #%d has reached %d completed classes.</p>
		<p>A payment of %.2f is due before the next session can take place.</p>
	`, c.ID, c.ClassesCompleted, c.MonthlyFee),
	}
}
