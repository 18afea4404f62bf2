// Package intake loads campaign target devices from a tabular record
// source. Import is partial-success: invalid rows are rejected individually
// with a diagnostic while valid rows still load.
package intake

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/caretech-ops/fleetsweep/internal/model"
)

var (
	ErrRead          = errors.New("error reading device records")
	ErrMissingColumn = errors.New("required column not found")
)

// Rejection is the per-row diagnostic for a record that did not load.
type Rejection struct {
	Row      int    `json:"row"`
	Hostname string `json:"hostname"`
	MAC      string `json:"mac"`
	Reason   string `json:"reason"`
}

func (r Rejection) Error() string {
	return fmt.Sprintf("row %d (hostname=%q mac=%q): %s", r.Row, r.Hostname, r.MAC, r.Reason)
}

// Result is the outcome of one import.
type Result struct {
	Devices  []*model.Device
	Rejected []Rejection
}

// Diagnostics aggregates the rejections into one error, nil when every row
// loaded.
func (r Result) Diagnostics() error {
	var merr *multierror.Error

	for _, rejection := range r.Rejected {
		merr = multierror.Append(merr, rejection)
	}

	return merr.ErrorOrNil()
}

// LoadCSV reads device records from CSV. The hostname and MAC columns are
// located by case-insensitive header-substring match; MACs are normalized to
// their canonical 12 hex digit form. Duplicate hostnames or MACs are
// rejected, first occurrence wins.
func LoadCSV(r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Result{}, errors.Wrap(ErrRead, err.Error())
	}

	hostCol, macCol, err := locateColumns(header)
	if err != nil {
		return Result{}, err
	}

	result := Result{}

	seenHostnames := map[string]struct{}{}
	seenMACs := map[string]struct{}{}

	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			result.Rejected = append(result.Rejected, Rejection{Row: row, Reason: "malformed row: " + err.Error()})
			continue
		}

		hostname := strings.TrimSpace(field(record, hostCol))
		rawMAC := field(record, macCol)

		if hostname == "" {
			result.Rejected = append(result.Rejected, Rejection{Row: row, MAC: rawMAC, Reason: "empty hostname"})
			continue
		}

		mac, err := model.NormalizeMAC(rawMAC)
		if err != nil {
			result.Rejected = append(result.Rejected, Rejection{Row: row, Hostname: hostname, MAC: rawMAC, Reason: "invalid MAC"})
			continue
		}

		hostKey := strings.ToUpper(hostname)
		if _, dup := seenHostnames[hostKey]; dup {
			result.Rejected = append(result.Rejected, Rejection{Row: row, Hostname: hostname, MAC: rawMAC, Reason: "duplicate hostname"})
			continue
		}

		if _, dup := seenMACs[mac]; dup {
			result.Rejected = append(result.Rejected, Rejection{Row: row, Hostname: hostname, MAC: rawMAC, Reason: "duplicate MAC"})
			continue
		}

		seenHostnames[hostKey] = struct{}{}
		seenMACs[mac] = struct{}{}

		device := model.NewDevice(hostname, mac)
		result.Devices = append(result.Devices, &device)
	}

	return result, nil
}

// locateColumns applies the header-substring heuristics.
func locateColumns(header []string) (hostCol, macCol int, err error) {
	hostCol, macCol = -1, -1

	for idx, name := range header {
		lowered := strings.ToLower(strings.TrimSpace(name))

		if hostCol < 0 && strings.Contains(lowered, "host") {
			hostCol = idx
		}

		if macCol < 0 && strings.Contains(lowered, "mac") {
			macCol = idx
		}
	}

	if hostCol < 0 {
		return 0, 0, errors.Wrap(ErrMissingColumn, "hostname")
	}

	if macCol < 0 {
		return 0, 0, errors.Wrap(ErrMissingColumn, "mac")
	}

	return hostCol, macCol, nil
}

func field(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}

	return record[idx]
}
