package config

// StoreConfig configures the deductive store.
type StoreConfig struct {
	Threads   int    `yaml:"threads"`    // parallel file parsing
	FactLimit int    `yaml:"fact_limit"` // derived facts per reason step, 0 = unlimited
	Equality  string `yaml:"equality"`   // axiomatize, off
}

// PathsConfig configures file locations.
type PathsConfig struct {
	WorkDir      string `yaml:"work_dir"`
	ABoxDir      string `yaml:"abox_dir"`
	ExportPath   string `yaml:"export_path"`
	ExportFormat string `yaml:"export_format"` // ntriples, sqlite
}

// MaterializeConfig configures the FIRE/REASON loop.
type MaterializeConfig struct {
	MaxRounds   int    `yaml:"max_rounds"` // 0 = unlimited
	MetricsFile string `yaml:"metrics_file"`
}
