package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/medai/medai/internal/platform/calendar"
	"github.com/medai/medai/internal/platform/filestore"
	"github.com/medai/medai/internal/platform/telemetry"
)

// Dispatcher delivers booking and visit events to email and calendar on a
// background worker. It satisfies the domains' Fanout interfaces. The queue
// is bounded; when it is full events are dropped and counted, never blocking
// the caller.
type Dispatcher struct {
	sender   EmailSender
	calendar calendar.Client
	tpl      *TemplateEngine
	metrics  *telemetry.Metrics
	logger   zerolog.Logger

	emailBreaker    *gobreaker.CircuitBreaker
	calendarBreaker *gobreaker.CircuitBreaker

	timeout time.Duration
	queue   chan task
	done    chan struct{}

	// OnCalendarEvent, when set, receives the calendar event id created for
	// an appointment so the caller can persist it.
	OnCalendarEvent func(appointmentID int, eventID string)
}

type task struct {
	id  string
	run func(ctx context.Context)
}

// DispatcherConfig bounds the dispatcher's buffering and delivery time.
type DispatcherConfig struct {
	QueueSize       int
	DeliveryTimeout time.Duration
}

func (c *DispatcherConfig) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 128
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = 10 * time.Second
	}
}

// NewDispatcher builds the dispatcher and starts its worker. cal may be nil
// when calendar integration is not configured.
func NewDispatcher(sender EmailSender, cal calendar.Client, metrics *telemetry.Metrics, logger zerolog.Logger, cfg DispatcherConfig) *Dispatcher {
	cfg.applyDefaults()
	d := &Dispatcher{
		sender:   sender,
		calendar: cal,
		tpl:      NewTemplateEngine(),
		metrics:  metrics,
		logger:   logger,
		timeout:  cfg.DeliveryTimeout,
		queue:    make(chan task, cfg.QueueSize),
		done:     make(chan struct{}),
	}
	d.emailBreaker = d.newBreaker("email")
	d.calendarBreaker = d.newBreaker("calendar")
	go d.worker()
	return d
}

func (d *Dispatcher) newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			d.logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
			if d.metrics != nil {
				d.metrics.SetBreakerState(name, float64(to))
			}
		},
	})
}

// Close stops the worker after draining queued tasks.
func (d *Dispatcher) Close() {
	close(d.queue)
	<-d.done
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for t := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		t.run(ctx)
		cancel()
	}
}

func (d *Dispatcher) enqueue(t task) {
	select {
	case d.queue <- t:
	default:
		d.logger.Warn().Str("task", t.id).Msg("notification queue full, event dropped")
		if d.metrics != nil {
			d.metrics.Delivery("queue", "dropped")
		}
	}
}

// AppointmentBooked emails the doctor and puts the appointment on the
// calendar.
func (d *Dispatcher) AppointmentBooked(appt *filestore.Appointment, patient *filestore.Patient, doctor *filestore.Doctor) {
	a, p, doc := *appt, *patient, *doctor
	d.enqueue(task{id: uuid.New().String(), run: func(ctx context.Context) {
		d.sendTemplate(ctx, TemplateAppointmentBooked, doc.Email, map[string]string{
			"doctor_name":   doc.Name,
			"patient_name":  p.Name,
			"patient_email": p.Email,
			"date":          a.ScheduledFor.Format("Monday, January 2, 2006"),
			"time":          a.ScheduledFor.Format("3:04 PM"),
			"symptoms":      a.Symptoms,
		})
		d.createCalendarEvent(ctx, &a, &p, &doc)
	}})
}

// AppointmentCancelled emails the doctor and removes any calendar event.
func (d *Dispatcher) AppointmentCancelled(appt *filestore.Appointment, patient *filestore.Patient, doctor *filestore.Doctor) {
	a, p, doc := *appt, *patient, *doctor
	d.enqueue(task{id: uuid.New().String(), run: func(ctx context.Context) {
		d.sendTemplate(ctx, TemplateAppointmentCancelled, doc.Email, map[string]string{
			"doctor_name":  doc.Name,
			"patient_name": p.Name,
			"date":         a.ScheduledFor.Format("Monday, January 2, 2006"),
			"time":         a.ScheduledFor.Format("3:04 PM"),
		})
		if d.calendar != nil && a.CalendarEventID != "" {
			_, err := d.calendarBreaker.Execute(func() (interface{}, error) {
				return nil, d.calendar.DeleteEvent(ctx, a.CalendarEventID)
			})
			d.count("calendar", err)
			if err != nil {
				d.logger.Warn().Err(err).Int("appointment_id", a.ID).Msg("calendar event removal failed")
			}
		}
	}})
}

// VisitRecorded emails the patient their visit summary.
func (d *Dispatcher) VisitRecorded(rec *filestore.VisitRecord, patient *filestore.Patient, doctor *filestore.Doctor) {
	r, p, doc := *rec, *patient, *doctor
	d.enqueue(task{id: uuid.New().String(), run: func(ctx context.Context) {
		meds := make([]string, 0, len(r.Medications))
		for _, m := range r.Medications {
			meds = append(meds, strings.TrimSpace(fmt.Sprintf("%s %s", m.Name, m.Dosage)))
		}
		medList := strings.Join(meds, ", ")
		if medList == "" {
			medList = "none"
		}
		d.sendTemplate(ctx, TemplateVisitSummary, p.Email, map[string]string{
			"patient_name": p.Name,
			"doctor_name":  doc.Name,
			"visit_date":   r.VisitDate.Format("Monday, January 2, 2006"),
			"summary":      r.Summary,
			"medications":  medList,
		})
	}})
}

func (d *Dispatcher) sendTemplate(ctx context.Context, templateID, to string, data map[string]string) {
	subject, body, err := d.tpl.Render(templateID, data)
	if err != nil {
		d.logger.Error().Err(err).Str("template", templateID).Msg("template render failed")
		return
	}
	_, err = d.emailBreaker.Execute(func() (interface{}, error) {
		return nil, d.sender.SendEmail(ctx, to, subject, body)
	})
	d.count("email", err)
	if err != nil {
		d.logger.Warn().Err(err).Str("to", to).Str("template", templateID).Msg("email delivery failed")
		return
	}
	d.logger.Debug().Str("to", to).Str("template", templateID).Msg("email delivered")
}

func (d *Dispatcher) createCalendarEvent(ctx context.Context, a *filestore.Appointment, p *filestore.Patient, doc *filestore.Doctor) {
	if d.calendar == nil {
		return
	}
	res, err := d.calendarBreaker.Execute(func() (interface{}, error) {
		return d.calendar.CreateEvent(ctx, calendar.Event{
			Summary:     fmt.Sprintf("Appointment: %s with %s", p.Name, doc.Name),
			Description: "Symptoms: " + a.Symptoms,
			Start:       a.ScheduledFor,
			End:         a.ScheduledFor.Add(30 * time.Minute),
			Attendees:   []string{p.Email, doc.Email},
		})
	})
	d.count("calendar", err)
	if err != nil {
		d.logger.Warn().Err(err).Int("appointment_id", a.ID).Msg("calendar event creation failed")
		return
	}
	eventID, _ := res.(string)
	if eventID != "" && d.OnCalendarEvent != nil {
		d.OnCalendarEvent(a.ID, eventID)
	}
}

func (d *Dispatcher) count(channel string, err error) {
	if d.metrics == nil {
		return
	}
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	d.metrics.Delivery(channel, outcome)
}
