package archive

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	sqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/caretech-ops/fleetsweep/internal/model"
)

// HistoryCap bounds the retained run history; the oldest entries beyond the
// cap are evicted on append.
const HistoryCap = 50

var ErrStore = errors.New("run archive store error")

// runRow is the persisted shape of a DeploymentRun.
//
// nolint:govet // fieldalignment - struct is better readable in its current form.
type runRow struct {
	ID         string    `gorm:"primaryKey"`
	CampaignID string    `gorm:"index"`
	EndTime    time.Time `gorm:"index"`

	TotalDevices int
	SuccessRate  float64

	// Breakdown carries the status / component / failure-reason counts as JSON.
	Breakdown []byte
}

func (runRow) TableName() string { return "deployment_runs" }

type breakdown struct {
	StatusCounts          map[model.Status]int `json:"status_counts"`
	ComponentUpdateCounts map[string]int       `json:"component_update_counts"`
	FailureReasonCounts   map[string]int       `json:"failure_reason_counts"`
}

// Store persists the bounded run history in a local sqlite database.
type Store struct {
	db  *gorm.DB
	cap int
}

// Open opens (and migrates) the archive database at path.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	gormConfig := &gorm.Config{
		// sqlite wraps each write in a transaction by default, which only
		// amplifies lock contention for this single writer.
		SkipDefaultTransaction: true,
	}

	if logger != nil {
		gormConfig.Logger = gormlogger.New(
			logger,
			gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		)
	}

	dsn := path + "?_pragma=busy_timeout(15000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, gormConfig)
	if err != nil {
		return nil, errors.Wrap(ErrStore, err.Error())
	}

	if err := db.AutoMigrate(&runRow{}); err != nil {
		return nil, errors.Wrap(ErrStore, err.Error())
	}

	return &Store{db: db, cap: HistoryCap}, nil
}

// Append stores the run and evicts history beyond the cap, oldest first.
func (s *Store) Append(run model.DeploymentRun) error {
	payload, err := json.Marshal(breakdown{
		StatusCounts:          run.StatusCounts,
		ComponentUpdateCounts: run.ComponentUpdateCounts,
		FailureReasonCounts:   run.FailureReasonCounts,
	})
	if err != nil {
		return errors.Wrap(ErrStore, err.Error())
	}

	row := runRow{
		ID:           run.ID.String(),
		CampaignID:   run.CampaignID.String(),
		EndTime:      run.EndTime,
		TotalDevices: run.TotalDevices,
		SuccessRate:  run.SuccessRate,
		Breakdown:    payload,
	}

	if err := s.db.Create(&row).Error; err != nil {
		return errors.Wrap(ErrStore, err.Error())
	}

	return s.evict()
}

func (s *Store) evict() error {
	var stale []runRow

	err := s.db.
		Order("end_time desc").
		Offset(s.cap).
		Limit(-1).
		Find(&stale).Error
	if err != nil {
		return errors.Wrap(ErrStore, err.Error())
	}

	for _, row := range stale {
		if err := s.db.Delete(&runRow{}, "id = ?", row.ID).Error; err != nil {
			return errors.Wrap(ErrStore, err.Error())
		}
	}

	return nil
}

// List returns the archived runs, newest first.
func (s *Store) List() ([]model.DeploymentRun, error) {
	var rows []runRow

	if err := s.db.Order("end_time desc").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(ErrStore, err.Error())
	}

	runs := make([]model.DeploymentRun, 0, len(rows))

	for _, row := range rows {
		run := model.DeploymentRun{
			EndTime:      row.EndTime,
			TotalDevices: row.TotalDevices,
			SuccessRate:  row.SuccessRate,
		}

		if id, err := uuid.Parse(row.ID); err == nil {
			run.ID = id
		}

		if id, err := uuid.Parse(row.CampaignID); err == nil {
			run.CampaignID = id
		}

		var b breakdown
		if err := json.Unmarshal(row.Breakdown, &b); err != nil {
			return nil, errors.Wrap(ErrStore, err.Error())
		}

		run.StatusCounts = b.StatusCounts
		run.ComponentUpdateCounts = b.ComponentUpdateCounts
		run.FailureReasonCounts = b.FailureReasonCounts

		runs = append(runs, run)
	}

	return runs, nil
}

// Count returns the number of archived runs.
func (s *Store) Count() (int64, error) {
	var count int64

	if err := s.db.Model(&runRow{}).Count(&count).Error; err != nil {
		return 0, errors.Wrap(ErrStore, err.Error())
	}

	return count, nil
}
