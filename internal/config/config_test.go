package config

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("when config file has full content", func() {
			BeforeEach(func() {
				full := `
source:
  host: oracle.internal
  port: 1521
  service: ORCLPDB
  user: migrator

target:
  host: mssql.internal
  port: 1433
  database: migrated
  user: sa

migration:
  max_repair_attempts: 5
  max_dependency_cycles: 2
  batch_size: 500
  conflict_strategy: "SKIP_EXISTING"
  use_llm_repair: false
  use_web_search: false
  resolution_timeout: "10s"
  default_schema: "app"

concurrency:
  pool_size: 4

llm:
  provider: anthropic
  endpoint: "https://api.anthropic.com"
  model: "claude-test"
  timeout: "45s"

logging:
  level: debug
  format: console

output:
  run_dir_root: "/tmp/runs"
  shared_memory_path: "/tmp/runs/memory.json"
`
				Expect(os.WriteFile(configFile, []byte(full), 0644)).To(Succeed())
			})

			It("loads every section", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.Source.Host).To(Equal("oracle.internal"))
				Expect(cfg.Target.Database).To(Equal("migrated"))
				Expect(cfg.Migration.MaxRepairAttempts).To(Equal(5))
				Expect(cfg.Migration.MaxDependencyCycles).To(Equal(2))
				Expect(cfg.Migration.BatchSize).To(Equal(500))
				Expect(cfg.Migration.ConflictStrategy).To(Equal(ConflictSkipExisting))
				Expect(*cfg.Migration.UseLLMRepair).To(BeFalse())
				Expect(*cfg.Migration.UseWebSearch).To(BeFalse())
				Expect(cfg.Migration.ResolutionTimeout).To(Equal(10 * time.Second))
				Expect(cfg.Migration.DefaultSchema).To(Equal("app"))
				Expect(cfg.Concurrency.PoolSize).To(Equal(4))
				Expect(cfg.LLM.Provider).To(Equal("anthropic"))
				Expect(cfg.LLM.Timeout).To(Equal(45 * time.Second))
				Expect(cfg.Logging.Level).To(Equal("debug"))
				Expect(cfg.Output.RunDirRoot).To(Equal("/tmp/runs"))
			})
		})

		Context("when config file has minimal content", func() {
			BeforeEach(func() {
				minimal := `
source:
  host: oracle.internal
target:
  host: mssql.internal
`
				Expect(os.WriteFile(configFile, []byte(minimal), 0644)).To(Succeed())
			})

			It("applies defaults for every recognized option", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.Migration.MaxRepairAttempts).To(Equal(3))
				Expect(cfg.Migration.MaxDependencyCycles).To(Equal(3))
				Expect(cfg.Migration.BatchSize).To(Equal(1000))
				Expect(cfg.Migration.ConflictStrategy).To(Equal(ConflictCreateOrAlter))
				Expect(*cfg.Migration.UseLLMRepair).To(BeTrue())
				Expect(*cfg.Migration.UseWebSearch).To(BeTrue())
				Expect(cfg.Migration.ResolutionTimeout).To(Equal(30 * time.Second))
				Expect(cfg.Migration.DefaultSchema).To(Equal("dbo"))
				Expect(cfg.Concurrency.PoolSize).To(Equal(1))
			})
		})

		Context("when the file does not exist", func() {
			It("returns an error", func() {
				_, err := Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("BatchSizeInRange", func() {
		It("clamps below the floor", func() {
			m := MigrationConfig{BatchSize: 10}
			Expect(m.BatchSizeInRange()).To(Equal(100))
		})
		It("clamps above the ceiling", func() {
			m := MigrationConfig{BatchSize: 50000}
			Expect(m.BatchSizeInRange()).To(Equal(10000))
		})
		It("passes through in-range values", func() {
			m := MigrationConfig{BatchSize: 2500}
			Expect(m.BatchSizeInRange()).To(Equal(2500))
		})
	})
})
