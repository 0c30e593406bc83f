package handler

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// respondError reports a stable message plus cause detail, never the raw
// internal error alone.
func respondError(c *gin.Context, status int, message string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	c.JSON(status, gin.H{"message": message, "error": detail})
}

func parseID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		respondError(c, 400, "invalid "+name, err)
		return 0, false
	}
	return id, true
}

// Date unmarshals a "YYYY-MM-DD" request field, treating "" as absent.
type Date struct {
	Time *time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = nil
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = &t
	return nil
}

// Number unmarshals a numeric request field that manual edit forms send as
// either a number, a numeric string, or "" meaning null.
type Number struct {
	Value *float64
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		n.Value = nil
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		n.Value = &f
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return err
	}
	n.Value = &f
	return nil
}
