// Package stats builds the read-only dashboard figures. Builders are pure
// functions over collections; the Aggregator only loads them.
package stats

import (
	"sort"
	"time"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
)

type StatusCount struct {
	Status model.AppointmentStatus
	Total  int
}

type DayCount struct {
	Day   string
	Total int
}

type MonthCount struct {
	Month string
	Total int
}

type Dashboard struct {
	Users        int
	Appointments int
	Services     int
	ByStatus     []StatusCount
	ByDay        []DayCount
	ByMonth      []MonthCount
}

type MethodTotal struct {
	Method model.PaymentMethod
	Total  int
	Amount model.Money
}

type MonthTotal struct {
	Month  string
	Total  int
	Amount model.Money
}

// PaymentSummary counts every payment, while amounts only include approved
// ones so the figures reconcile with Paid.
type PaymentSummary struct {
	Payments int
	Paid     model.Money
	ByMethod []MethodTotal
	ByMonth  []MonthTotal
}

type IncomeDay struct {
	Date   string
	Total  int
	Amount model.Money
}

type Income struct {
	From     time.Time
	To       time.Time
	Total    model.Money
	Payments int
	Average  model.Money
	Days     []IncomeDay
}

var statusOrder = []model.AppointmentStatus{
	model.StatusPending,
	model.StatusConfirmed,
	model.StatusCompleted,
	model.StatusCancelled,
}

var methodOrder = []model.PaymentMethod{
	model.MethodCash,
	model.MethodCard,
	model.MethodTransfer,
}

func BuildDashboard(users, services int, appts []model.Appointment) Dashboard {
	d := Dashboard{
		Users:        users,
		Appointments: len(appts),
		Services:     services,
		ByStatus:     []StatusCount{},
		ByDay:        []DayCount{},
		ByMonth:      []MonthCount{},
	}

	byStatus := map[model.AppointmentStatus]int{}
	byDay := map[string]int{}
	byMonth := map[string]int{}
	for _, a := range appts {
		byStatus[a.Status]++
		byDay[a.ScheduledAt.Format(model.DateLayout)]++
		byMonth[a.ScheduledAt.Format(model.MonthLayout)]++
	}

	for _, s := range statusOrder {
		if n := byStatus[s]; n > 0 {
			d.ByStatus = append(d.ByStatus, StatusCount{Status: s, Total: n})
		}
	}
	for _, day := range sortedKeys(byDay) {
		d.ByDay = append(d.ByDay, DayCount{Day: day, Total: byDay[day]})
	}
	for _, month := range sortedKeys(byMonth) {
		d.ByMonth = append(d.ByMonth, MonthCount{Month: month, Total: byMonth[month]})
	}
	return d
}

func BuildPayments(pays []model.Payment) PaymentSummary {
	s := PaymentSummary{
		Payments: len(pays),
		ByMethod: []MethodTotal{},
		ByMonth:  []MonthTotal{},
	}

	methods := map[model.PaymentMethod]*MethodTotal{}
	months := map[string]*MonthTotal{}
	for _, p := range pays {
		m, ok := methods[p.Method]
		if !ok {
			m = &MethodTotal{Method: p.Method}
			methods[p.Method] = m
		}
		key := p.PaidOn.Format(model.MonthLayout)
		mo, ok := months[key]
		if !ok {
			mo = &MonthTotal{Month: key}
			months[key] = mo
		}
		m.Total++
		mo.Total++
		if p.Status == model.PaymentApproved {
			s.Paid += p.Amount
			m.Amount += p.Amount
			mo.Amount += p.Amount
		}
	}

	for _, method := range methodOrder {
		if m, ok := methods[method]; ok {
			s.ByMethod = append(s.ByMethod, *m)
		}
	}
	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.ByMonth = append(s.ByMonth, *months[k])
	}
	return s
}

// BuildIncome sums approved payments whose payment date falls in [from, to].
func BuildIncome(pays []model.Payment, from, to time.Time) Income {
	from, to = model.DayOf(from), model.DayOf(to)
	in := Income{From: from, To: to, Days: []IncomeDay{}}

	days := map[string]*IncomeDay{}
	for _, p := range pays {
		if p.Status != model.PaymentApproved {
			continue
		}
		day := model.DayOf(p.PaidOn)
		if day.Before(from) || day.After(to) {
			continue
		}
		key := day.Format(model.DateLayout)
		d, ok := days[key]
		if !ok {
			d = &IncomeDay{Date: key}
			days[key] = d
		}
		d.Total++
		d.Amount += p.Amount
		in.Payments++
		in.Total += p.Amount
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		in.Days = append(in.Days, *days[k])
	}
	if in.Payments > 0 {
		n := model.Money(in.Payments)
		in.Average = (in.Total + n/2) / n
	}
	return in
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
