package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	logpkg "github.com/caramaschiHG/Dilutio/common/logger"
	"github.com/caramaschiHG/Dilutio/internal/aggregator"
	"github.com/caramaschiHG/Dilutio/internal/compounding"
	"github.com/caramaschiHG/Dilutio/internal/config"
	"github.com/caramaschiHG/Dilutio/internal/models"
	"github.com/caramaschiHG/Dilutio/internal/service"
	"github.com/caramaschiHG/Dilutio/pkg/client"

	"go.uber.org/zap"
)

const usage = `Usage: dilutioctl <command> [flags]

Commands:
  base       standardize the base paste
  fractions  compute patient aliquots for a given base concentration
  batch      full recalculation (base + patients + summary)
  pop        generate the POP workbook (.xlsx)

Run "dilutioctl <command> -h" for command flags.
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// backend 本地计算或远程 API
type backend interface {
	ComputeBase(ctx context.Context, req models.BaseRequest) (compounding.BaseResult, error)
	ComputeFractions(ctx context.Context, req models.FractionsRequest) ([]compounding.PatientResult, error)
	ComputeBatch(ctx context.Context, req models.BatchRequest) (*models.BatchCalculation, error)
	GeneratePOP(ctx context.Context, req models.POPRequest) ([]byte, string, error)
}

// localBackend 进程内计算（不使用缓存）
type localBackend struct {
	svc service.CompoundingService
}

func newLocalBackend(cfg *config.Config, log *zap.Logger) *localBackend {
	agg := aggregator.NewBatchAggregator(cfg, nil, nil, log)
	return &localBackend{svc: service.NewCompoundingService(agg, cfg.Densities, nil, time.Now, log)}
}

func (b *localBackend) ComputeBase(ctx context.Context, req models.BaseRequest) (compounding.BaseResult, error) {
	return b.svc.ComputeBase(ctx, req), nil
}

func (b *localBackend) ComputeFractions(ctx context.Context, req models.FractionsRequest) ([]compounding.PatientResult, error) {
	return b.svc.ComputeFractions(ctx, req), nil
}

func (b *localBackend) ComputeBatch(ctx context.Context, req models.BatchRequest) (*models.BatchCalculation, error) {
	return b.svc.ComputeBatch(ctx, req)
}

func (b *localBackend) GeneratePOP(ctx context.Context, req models.POPRequest) ([]byte, string, error) {
	file, err := b.svc.GeneratePOP(ctx, req)
	if err != nil {
		return nil, "", err
	}
	return file.Content, file.BatchNumber, nil
}

// patientFlags 可重复的 -patient "name:conc:vol"
type patientFlags struct {
	list *compounding.PatientList
}

func (p *patientFlags) String() string {
	if p.list == nil {
		return ""
	}
	return fmt.Sprintf("%d patient(s)", p.list.Len())
}

func (p *patientFlags) Set(value string) error {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return fmt.Errorf("patient must be name:concentration:volume, got %q", value)
	}
	rec := p.list.Add(strings.TrimSpace(parts[0]), "", "")
	if err := p.list.Update(rec.ID, compounding.FieldTargetConcentration, parts[1]); err != nil {
		p.list.Remove(rec.ID)
		return fmt.Errorf("patient %q concentration: %w", parts[0], err)
	}
	if err := p.list.Update(rec.ID, compounding.FieldBottleVolume, parts[2]); err != nil {
		p.list.Remove(rec.ID)
		return fmt.Errorf("patient %q bottle volume: %w", parts[0], err)
	}
	return nil
}

// commonFlags 所有子命令共享的参数
type commonFlags struct {
	remote   string
	logLevel string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.remote, "remote", "", "dilutio API base URL (default: compute locally)")
	fs.StringVar(&c.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
}

func registerBase(fs *flag.FlagSet, req *models.BaseRequest) {
	fs.StringVar(&req.Mode, "mode", "mass", "calculation mode: mass, volume, concentration")
	fs.StringVar(&req.ExtractType, "extract", "rosin", "extract type: rosin, rso, isolado")
	fs.StringVar(&req.PotencyPercent, "potency", "", "potency from the COA (%)")
	fs.StringVar(&req.ExtractMassGrams, "mass", "", "extract mass (g)")
	fs.StringVar(&req.TargetConcentrationMgPerMl, "conc", "", "target concentration (mg/ml)")
	fs.StringVar(&req.TargetVolumeMl, "volume", "", "target volume (ml)")
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("missing command")
	}

	cmd, rest := args[0], args[1:]
	fs := flag.NewFlagSet("dilutioctl "+cmd, flag.ContinueOnError)

	var (
		common   commonFlags
		base     models.BaseRequest
		patients = &patientFlags{list: compounding.NewPatientList()}
		baseConc float64
		docType  string
		tech     string
		lot      string
		out      string
	)
	common.register(fs)

	switch cmd {
	case "base":
		registerBase(fs, &base)
	case "fractions":
		fs.Float64Var(&baseConc, "base-conc", 0, "base paste concentration (mg/ml)")
		fs.Var(patients, "patient", `patient as "name:conc:vol" (repeatable)`)
	case "batch":
		registerBase(fs, &base)
		fs.Var(patients, "patient", `patient as "name:conc:vol" (repeatable)`)
	case "pop":
		registerBase(fs, &base)
		fs.Var(patients, "patient", `patient as "name:conc:vol" (repeatable)`)
		fs.StringVar(&docType, "type", "full", "document type: base, full")
		fs.StringVar(&tech, "technician", "", "responsible technician")
		fs.StringVar(&lot, "lot", "", "batch number (default: generated)")
		fs.StringVar(&out, "out", "", "output .xlsx path (default: POP_<lot>.xlsx)")
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	if err := fs.Parse(rest); err != nil {
		return err
	}

	log, err := logpkg.NewCLILogger(common.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	var b backend
	if common.remote != "" {
		b = client.New(common.remote, log)
	} else {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		b = newLocalBackend(cfg, log)
	}

	switch cmd {
	case "base":
		r, err := b.ComputeBase(ctx, base)
		if err != nil {
			return err
		}
		return printJSON(stdout, r)

	case "fractions":
		r, err := b.ComputeFractions(ctx, models.FractionsRequest{
			BaseConcentrationMgPerMl: baseConc,
			Patients:                 patients.list.Records(),
		})
		if err != nil {
			return err
		}
		return printJSON(stdout, r)

	case "batch":
		r, err := b.ComputeBatch(ctx, models.BatchRequest{Base: base, Patients: patients.list.Records()})
		if err != nil {
			return err
		}
		return printJSON(stdout, r)

	default: // pop
		content, batchNumber, err := b.GeneratePOP(ctx, models.POPRequest{
			Type:        docType,
			Technician:  tech,
			BatchNumber: lot,
			Base:        base,
			Patients:    patients.list.Records(),
		})
		if err != nil {
			return err
		}
		if out == "" {
			out = "POP_" + batchNumber + ".xlsx"
		}
		if err := os.WriteFile(out, content, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Fprintf(stdout, "%s (%s, %d bytes)\n", out, batchNumber, len(content))
		return nil
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
