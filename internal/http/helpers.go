package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"caderneta/internal/core"
)

const flashCookie = "caderneta_flash"

// Flash is a one-shot message carried to the next rendered page through a
// short-lived cookie.
type Flash struct {
	Level   string // success, info, warning, danger
	Message string
}

func (s *Server) signFlash(payload string) string {
	mac := hmac.New(sha256.New, s.flashKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Server) setFlash(w http.ResponseWriter, level, message string) {
	payload := base64.URLEncoding.EncodeToString([]byte(level + "|" + message))
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    payload + "." + s.signFlash(payload),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the pending flash message, if any. Cookies whose
// signature does not verify are discarded.
func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	payload, sig, ok := strings.Cut(c.Value, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(s.signFlash(payload))) {
		return nil
	}
	raw, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}
	level, message, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil
	}
	return &Flash{Level: level, Message: message}
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func formID(r *http.Request, field string) int64 {
	id, _ := strconv.ParseInt(strings.TrimSpace(r.FormValue(field)), 10, 64)
	return id
}

// parseYearMonth extracts ano and mes from query parameters, defaulting to
// the current month.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("ano")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("mes")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}
	return year, month
}

func parseFormDate(r *http.Request, field string) (time.Time, error) {
	v := strings.TrimSpace(r.FormValue(field))
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", v, err)
	}
	return t, nil
}

// formatBRL formats cents as a Brazilian Real string, e.g. "R$ 1.234,56".
func formatBRL(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	reais := cents / 100
	rem := cents % 100

	digits := strconv.FormatInt(reais, 10)
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}

	s := fmt.Sprintf("R$ %s,%02d", b.String(), rem)
	if neg {
		return "-" + s
	}
	return s
}

var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// monthName returns the Portuguese name for a 1-based month.
func monthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// MonthOption feeds the month selector on dashboard and statement pages.
type MonthOption struct {
	ID   int
	Name string
}

func monthOptions() []MonthOption {
	opts := make([]MonthOption, 12)
	for i, name := range monthNames {
		opts[i] = MonthOption{ID: i + 1, Name: name}
	}
	return opts
}

func yearOptions(back, forward int) []int {
	current := time.Now().Year()
	var years []int
	for y := current - back; y <= current+forward; y++ {
		years = append(years, y)
	}
	return years
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"brl": func(m core.Money) string { return formatBRL(m.Cents) },
		// amount renders a plain editable value ("1234,56") that the money
		// parsers accept back.
		"amount": func(m core.Money) string {
			cents := m.Cents
			sign := ""
			if cents < 0 {
				sign = "-"
				cents = -cents
			}
			return fmt.Sprintf("%s%d,%02d", sign, cents/100, cents%100)
		},
		"dateBR": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006")
		},
		"monthName": monthName,
	}
}
