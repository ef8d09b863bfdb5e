package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// BankDefaults are applied when a bank's export omits a field.
type BankDefaults struct {
	Currency string
	Status   string
}

// AirtableConfig drives the failed-queue enrichment lookup.
type AirtableConfig struct {
	UseStub      bool
	BaseID       string
	APIKey       string
	Table        string
	View         string
	LookupColumn string // column in FAILED_QUEUE used for matching
	LookupField  string // field in Airtable used for matching
	ChunkSize    int    // IDs per OR() formula
	// FieldMap: queue column -> Airtable field. The special value "__recordId"
	// pulls the Airtable record id instead of a field.
	FieldMap     map[string]string
	SelectFields []string
}

// Config is the immutable run configuration. Build it once in main and pass
// it into each component's constructor; nothing reads the environment later.
type Config struct {
	SpreadsheetID string
	RawFolderID   string

	// Optional mirrors. Empty disables the corresponding archiver.
	GCSArchiveBucket string
	BigQueryProject  string
	BigQueryDataset  string

	WriteLogTable bool

	DefaultsByBank map[string]BankDefaults
	Airtable       AirtableConfig
}

const fallbackBank = "_FALLBACK"

// Defaults returns the per-bank defaults, falling back to the global entry.
func (c Config) Defaults(bank string) BankDefaults {
	if d, ok := c.DefaultsByBank[bank]; ok {
		return d
	}
	if d, ok := c.DefaultsByBank[fallbackBank]; ok {
		return d
	}
	return BankDefaults{Currency: "USD", Status: "PENDING"}
}

// Load reads configuration from the environment. A .env file is honored when
// present (development convenience), real environments win over the file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		SpreadsheetID:    os.Getenv("RECON_SPREADSHEET_ID"),
		RawFolderID:      os.Getenv("RECON_RAW_FOLDER_ID"),
		GCSArchiveBucket: os.Getenv("RECON_GCS_ARCHIVE_BUCKET"),
		BigQueryProject:  os.Getenv("RECON_BIGQUERY_PROJECT"),
		BigQueryDataset:  getenvDefault("RECON_BIGQUERY_DATASET", "settlements"),
		WriteLogTable:    getenvBool("RECON_WRITE_LOG_TABLE", true),
		DefaultsByBank: map[string]BankDefaults{
			"BANISTMO":      {Currency: "USD", Status: "PENDING"},
			"BANCO_GENERAL": {Currency: "USD", Status: "PENDING"},
			fallbackBank:    {Currency: "USD", Status: "PENDING"},
		},
		Airtable: AirtableConfig{
			UseStub:      getenvBool("RECON_AIRTABLE_USE_STUB", false),
			BaseID:       os.Getenv("RECON_AIRTABLE_BASE_ID"),
			APIKey:       os.Getenv("RECON_AIRTABLE_API_KEY"),
			Table:        os.Getenv("RECON_AIRTABLE_TABLE"),
			View:         os.Getenv("RECON_AIRTABLE_VIEW"),
			LookupColumn: getenvDefault("RECON_AIRTABLE_LOOKUP_COLUMN", "reference_id"),
			LookupField:  getenvDefault("RECON_AIRTABLE_LOOKUP_FIELD", "reference_id"),
			ChunkSize:    getenvInt("RECON_AIRTABLE_CHUNK_SIZE", 10),
			FieldMap: map[string]string{
				"airtable_record_id":   "__recordId",
				"airtable_phone_e164":  "phone_e164",
				"airtable_segment":     "segment",
				"airtable_wa_template": "wa_template",
				"airtable_notes":       "notes",
			},
			SelectFields: []string{"reference_id", "phone_e164", "segment", "wa_template", "notes"},
		},
	}

	if cfg.SpreadsheetID == "" {
		return Config{}, fmt.Errorf("config: RECON_SPREADSHEET_ID is required")
	}
	if cfg.RawFolderID == "" {
		return Config{}, fmt.Errorf("config: RECON_RAW_FOLDER_ID is required")
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
