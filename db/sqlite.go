package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/mattn/go-sqlite3"

	"pricetier/ml"
)

var database *sql.DB

var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrDeviceExists   = errors.New("device already exists")
)

// DeviceRecord is a stored device: its id, the immutable spec it was
// registered with, and the predicted price tier once one has been persisted.
type DeviceRecord struct {
	ID         string        `json:"id"`
	Spec       ml.DeviceSpec `json:"spec"`
	PriceRange *int          `json:"price_range,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// InitDB opens the SQLite database and creates the device table.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS device_records (
        id VARCHAR(64) PRIMARY KEY,
        battery_power REAL NOT NULL,
        blue REAL NOT NULL,
        clock_speed REAL NOT NULL,
        dual_sim REAL NOT NULL,
        fc REAL NOT NULL,
        four_g REAL NOT NULL,
        int_memory REAL NOT NULL,
        m_dep REAL NOT NULL,
        mobile_wt REAL NOT NULL,
        n_cores REAL NOT NULL,
        pc REAL NOT NULL,
        px_height REAL NOT NULL,
        px_width REAL NOT NULL,
        ram REAL NOT NULL,
        sc_h REAL NOT NULL,
        sc_w REAL NOT NULL,
        talk_time REAL NOT NULL,
        three_g REAL NOT NULL,
        touch_screen REAL NOT NULL,
        wifi REAL NOT NULL,
        price_range INTEGER,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `

	_, err = database.Exec(query)
	return err
}

// Close releases the database handle.
func Close() error {
	if database == nil {
		return nil
	}
	return database.Close()
}

// CreateDevice inserts a new record. The price tier starts unset.
func CreateDevice(id string, spec ml.DeviceSpec) (*DeviceRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}

	_, err := database.Exec(`
        INSERT INTO device_records (
            id, battery_power, blue, clock_speed, dual_sim, fc, four_g,
            int_memory, m_dep, mobile_wt, n_cores, pc, px_height, px_width,
            ram, sc_h, sc_w, talk_time, three_g, touch_screen, wifi
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, spec.BatteryPower, spec.Bluetooth, spec.ClockSpeed, spec.DualSim,
		spec.FrontCamera, spec.FourG, spec.IntMemory, spec.MobileDepth,
		spec.MobileWeight, spec.NumCores, spec.PrimCamera, spec.PixelHeight,
		spec.PixelWidth, spec.RAM, spec.ScreenHeight, spec.ScreenWidth,
		spec.TalkTime, spec.ThreeG, spec.TouchScreen, spec.WiFi)
	if err != nil {
		if sqliteErr, ok := err.(sqlite3.Error); ok && sqliteErr.Code == sqlite3.ErrConstraint {
			return nil, ErrDeviceExists
		}
		return nil, err
	}

	return GetDevice(id)
}

// GetDevice fetches one record by id.
func GetDevice(id string) (*DeviceRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}

	row := database.QueryRow(`
        SELECT id, battery_power, blue, clock_speed, dual_sim, fc, four_g,
               int_memory, m_dep, mobile_wt, n_cores, pc, px_height, px_width,
               ram, sc_h, sc_w, talk_time, three_g, touch_screen, wifi,
               price_range, created_at, updated_at
        FROM device_records
        WHERE id = ?`, id)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	return record, err
}

// ListDevices returns all records ordered by creation time.
func ListDevices() ([]DeviceRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}

	rows, err := database.Query(`
        SELECT id, battery_power, blue, clock_speed, dual_sim, fc, four_g,
               int_memory, m_dep, mobile_wt, n_cores, pc, px_height, px_width,
               ram, sc_h, sc_w, talk_time, three_g, touch_screen, wifi,
               price_range, created_at, updated_at
        FROM device_records
        ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]DeviceRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// SetPriceRange persists a predicted tier with a single conditional UPDATE.
// Concurrent predictions for the same id resolve last-write-wins, which is
// safe because the label is a pure function of the immutable spec.
func SetPriceRange(id string, label int) (*DeviceRecord, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}

	result, err := database.Exec(`
        UPDATE device_records
        SET price_range = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ?`, label, id)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrDeviceNotFound
	}

	return GetDevice(id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*DeviceRecord, error) {
	var r DeviceRecord
	var priceRange sql.NullInt64
	err := row.Scan(&r.ID,
		&r.Spec.BatteryPower, &r.Spec.Bluetooth, &r.Spec.ClockSpeed,
		&r.Spec.DualSim, &r.Spec.FrontCamera, &r.Spec.FourG,
		&r.Spec.IntMemory, &r.Spec.MobileDepth, &r.Spec.MobileWeight,
		&r.Spec.NumCores, &r.Spec.PrimCamera, &r.Spec.PixelHeight,
		&r.Spec.PixelWidth, &r.Spec.RAM, &r.Spec.ScreenHeight,
		&r.Spec.ScreenWidth, &r.Spec.TalkTime, &r.Spec.ThreeG,
		&r.Spec.TouchScreen, &r.Spec.WiFi,
		&priceRange, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if priceRange.Valid {
		value := int(priceRange.Int64)
		r.PriceRange = &value
	}
	return &r, nil
}
