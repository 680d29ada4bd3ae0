package audit

import (
	"encoding/csv"
	"io"
	"time"
)

var csvHeader = []string{"Timestamp", "User", "Role", "Action", "Resource", "Description", "Status", "IP Address"}

// WriteCSV renders records as a CSV export, one row per record plus a
// header row. Field quoting follows RFC 4180 via encoding/csv.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range records {
		rec := &records[i]
		user := rec.ActorEmail
		if user == "" {
			user = "System"
		}
		role := rec.ActorRole
		if role == "" {
			role = "N/A"
		}
		ip := rec.IPAddress
		if ip == "" {
			ip = "N/A"
		}
		status := "Success"
		if rec.IsError {
			status = "Failed"
		}
		row := []string{
			rec.Timestamp.UTC().Format(time.RFC3339),
			user,
			role,
			rec.Action,
			rec.Resource,
			rec.Description,
			status,
			ip,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
