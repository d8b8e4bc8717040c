package handlers

import (
	"time"

	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/stats"
)

type citaView struct {
	ID             int64                   `json:"id"`
	UsuarioID      int64                   `json:"id_usuario"`
	ServicioID     int64                   `json:"id_servicio"`
	FechaHora      string                  `json:"fecha_hora"`
	Fecha          string                  `json:"fecha"`
	Hora           string                  `json:"hora"`
	Estado         model.AppointmentStatus `json:"estado"`
	Notas          string                  `json:"notas"`
	NombreUsuario  string                  `json:"nombre_usuario,omitempty"`
	NombreServicio string                  `json:"nombre_servicio,omitempty"`
	Precio         model.Money             `json:"precio"`
	CreatedAt      string                  `json:"created_at,omitempty"`
	UpdatedAt      string                  `json:"updated_at,omitempty"`
}

func newCitaView(a model.Appointment) citaView {
	return citaView{
		ID:             a.ID,
		UsuarioID:      a.ClientID,
		ServicioID:     a.ServiceID,
		FechaHora:      a.ScheduledAt.Format(model.DateTimeLayout),
		Fecha:          a.ScheduledAt.Format(model.DateLayout),
		Hora:           model.SlotLabel(a.ScheduledAt),
		Estado:         a.Status,
		Notas:          a.Notes,
		NombreUsuario:  a.ClientName,
		NombreServicio: a.ServiceName,
		Precio:         a.Price,
		CreatedAt:      formatTime(a.CreatedAt),
		UpdatedAt:      formatTime(a.UpdatedAt),
	}
}

func newCitaViews(appts []model.Appointment) []citaView {
	out := make([]citaView, 0, len(appts))
	for _, a := range appts {
		out = append(out, newCitaView(a))
	}
	return out
}

type pagoView struct {
	ID            int64               `json:"id"`
	CitaID        int64               `json:"id_cita"`
	UsuarioID     int64               `json:"id_usuario"`
	Monto         model.Money         `json:"monto"`
	Metodo        model.PaymentMethod `json:"metodo"`
	Estado        model.PaymentStatus `json:"estado"`
	Comprobante   string              `json:"comprobante,omitempty"`
	FechaPago     string              `json:"fecha_pago"`
	Notas         string              `json:"notas,omitempty"`
	MotivoRechazo string              `json:"motivo_rechazo,omitempty"`
	AprobadorID   int64               `json:"id_aprobador,omitempty"`
	NombreUsuario string              `json:"nombre_usuario,omitempty"`
	CreatedAt     string              `json:"created_at,omitempty"`
}

func newPagoView(p model.Payment) pagoView {
	return pagoView{
		ID:            p.ID,
		CitaID:        p.AppointmentID,
		UsuarioID:     p.ClientID,
		Monto:         p.Amount,
		Metodo:        p.Method,
		Estado:        p.Status,
		Comprobante:   p.Receipt,
		FechaPago:     p.PaidOn.Format(model.DateLayout),
		Notas:         p.Notes,
		MotivoRechazo: p.RejectReason,
		AprobadorID:   p.ApproverID,
		NombreUsuario: p.ClientName,
		CreatedAt:     formatTime(p.CreatedAt),
	}
}

func newPagoViews(pays []model.Payment) []pagoView {
	out := make([]pagoView, 0, len(pays))
	for _, p := range pays {
		out = append(out, newPagoView(p))
	}
	return out
}

type servicioView struct {
	ID          int64       `json:"id"`
	Nombre      string      `json:"nombre"`
	Descripcion string      `json:"descripcion"`
	Precio      model.Money `json:"precio"`
	Duracion    int         `json:"duracion"`
}

func newServicioView(s model.Service) servicioView {
	return servicioView{
		ID:          s.ID,
		Nombre:      s.Name,
		Descripcion: s.Description,
		Precio:      s.Price,
		Duracion:    s.DurationMinutes,
	}
}

// usuarioView never carries the password hash.
type usuarioView struct {
	ID        int64      `json:"id"`
	Nombre    string     `json:"nombre"`
	Email     string     `json:"email"`
	Telefono  string     `json:"telefono"`
	Rol       model.Role `json:"rol"`
	CreatedAt string     `json:"created_at,omitempty"`
}

func newUsuarioView(u model.User) usuarioView {
	return usuarioView{
		ID:        u.ID,
		Nombre:    u.Name,
		Email:     u.Email,
		Telefono:  u.Phone,
		Rol:       u.Role,
		CreatedAt: formatTime(u.CreatedAt),
	}
}

type estadoTotal struct {
	Estado model.AppointmentStatus `json:"estado"`
	Total  int                     `json:"total"`
}

type diaTotal struct {
	Dia   string `json:"dia"`
	Total int    `json:"total"`
}

type mesTotal struct {
	Mes   string `json:"mes"`
	Total int    `json:"total"`
}

type dashboardView struct {
	TotalUsuarios  int           `json:"totalUsuarios"`
	TotalCitas     int           `json:"totalCitas"`
	TotalServicios int           `json:"totalServicios"`
	CitasPorEstado []estadoTotal `json:"citasPorEstado"`
	CitasPorDia    []diaTotal    `json:"citasPorDia"`
	CitasPorMes    []mesTotal    `json:"citasPorMes"`
}

func newDashboardView(d stats.Dashboard) dashboardView {
	v := dashboardView{
		TotalUsuarios:  d.Users,
		TotalCitas:     d.Appointments,
		TotalServicios: d.Services,
		CitasPorEstado: make([]estadoTotal, 0, len(d.ByStatus)),
		CitasPorDia:    make([]diaTotal, 0, len(d.ByDay)),
		CitasPorMes:    make([]mesTotal, 0, len(d.ByMonth)),
	}
	for _, s := range d.ByStatus {
		v.CitasPorEstado = append(v.CitasPorEstado, estadoTotal{Estado: s.Status, Total: s.Total})
	}
	for _, day := range d.ByDay {
		v.CitasPorDia = append(v.CitasPorDia, diaTotal{Dia: day.Day, Total: day.Total})
	}
	for _, m := range d.ByMonth {
		v.CitasPorMes = append(v.CitasPorMes, mesTotal{Mes: m.Month, Total: m.Total})
	}
	return v
}

type metodoTotal struct {
	Metodo     model.PaymentMethod `json:"metodo"`
	Total      int                 `json:"total"`
	MontoTotal model.Money         `json:"montoTotal"`
}

type mesMonto struct {
	Mes        string      `json:"mes"`
	Total      int         `json:"total"`
	MontoTotal model.Money `json:"montoTotal"`
}

type pagosStatsView struct {
	TotalPagos       int           `json:"totalPagos"`
	TotalMontoPagado model.Money   `json:"totalMontoPagado"`
	PagosPorMetodo   []metodoTotal `json:"pagosPorMetodo"`
	PagosPorMes      []mesMonto    `json:"pagosPorMes"`
}

func newPagosStatsView(s stats.PaymentSummary) pagosStatsView {
	v := pagosStatsView{
		TotalPagos:       s.Payments,
		TotalMontoPagado: s.Paid,
		PagosPorMetodo:   make([]metodoTotal, 0, len(s.ByMethod)),
		PagosPorMes:      make([]mesMonto, 0, len(s.ByMonth)),
	}
	for _, m := range s.ByMethod {
		v.PagosPorMetodo = append(v.PagosPorMetodo, metodoTotal{Metodo: m.Method, Total: m.Total, MontoTotal: m.Amount})
	}
	for _, m := range s.ByMonth {
		v.PagosPorMes = append(v.PagosPorMes, mesMonto{Mes: m.Month, Total: m.Total, MontoTotal: m.Amount})
	}
	return v
}

type ingresoDia struct {
	Fecha string      `json:"fecha"`
	Total int         `json:"total"`
	Monto model.Money `json:"monto"`
}

type ingresosView struct {
	FechaDesde    string       `json:"fecha_desde"`
	FechaHasta    string       `json:"fecha_hasta"`
	TotalIngresos model.Money  `json:"totalIngresos"`
	TotalPagos    int          `json:"totalPagos"`
	Promedio      model.Money  `json:"promedio"`
	Detalle       []ingresoDia `json:"detalle"`
}

func newIngresosView(in stats.Income) ingresosView {
	v := ingresosView{
		FechaDesde:    in.From.Format(model.DateLayout),
		FechaHasta:    in.To.Format(model.DateLayout),
		TotalIngresos: in.Total,
		TotalPagos:    in.Payments,
		Promedio:      in.Average,
		Detalle:       make([]ingresoDia, 0, len(in.Days)),
	}
	for _, d := range in.Days {
		v.Detalle = append(v.Detalle, ingresoDia{Fecha: d.Date, Total: d.Total, Monto: d.Amount})
	}
	return v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateTimeLayout)
}
