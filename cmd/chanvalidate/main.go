// Command chanvalidate runs one of this module's covenant validators
// (PCTS, PFLS, VCLS, VCTS) against a hand-built transaction fixture,
// for offline testing of a channel-lifecycle transaction before it is
// broadcast. It mirrors the teacher's own main-in-a-nested-function
// shutdown idiom (cmd/lnd/main.go).
package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/davecgh/go-spew/spew"
	flags "github.com/jessevdk/go-flags"
	"github.com/perun-network/perun-ckb-contracts-go/channeltypes"
	"github.com/perun-network/perun-ckb-contracts-go/covenants/pcts"
	"github.com/perun-network/perun-ckb-contracts-go/covenants/pfls"
	"github.com/perun-network/perun-ckb-contracts-go/covenants/vcls"
	"github.com/perun-network/perun-ckb-contracts-go/covenants/vcts"
	"github.com/perun-network/perun-ckb-contracts-go/ledger"
)

func main() {
	if err := chanvalidateMain(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func chanvalidateMain() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := initLogRotator(cfg.LogDir + "/" + defaultLogFilename); err != nil {
		return fmt.Errorf("init log rotator: %w", err)
	}
	setLogLevel(cfg.DebugLevel)

	view, err := loadTxFile(cfg.TxFile)
	if err != nil {
		return err
	}

	var argsData []byte
	if cfg.ArgsFile != "" {
		argsData, err = os.ReadFile(cfg.ArgsFile)
		if err != nil {
			return fmt.Errorf("read args file: %w", err)
		}
	}

	log.Infof("validating transaction against %s", cfg.Script)
	log.Tracef("loaded fixture: %s", spew.Sdump(view))
	if moved, err := groupCapacityMoved(view); err == nil {
		log.Infof("group cells move %s", btcutil.Amount(moved))
	}

	if err := runValidator(cfg.Script, view, argsData); err != nil {
		log.Errorf("%s rejected transaction: %v", cfg.Script, err)
		return err
	}
	log.Infof("%s accepted transaction", cfg.Script)
	return nil
}

// groupCapacityMoved sums the capacity of every group output cell, for
// a rough at-a-glance log of how much value this transaction moves.
func groupCapacityMoved(view ledger.View) (int64, error) {
	count, err := ledger.CountCells(view, ledger.GroupOutput)
	if err != nil {
		return 0, err
	}
	var total int64
	for i := 0; i < count; i++ {
		capacity, err := view.LoadCellCapacity(i, ledger.GroupOutput)
		if err != nil {
			return 0, err
		}
		total += int64(capacity)
	}
	return total, nil
}

func runValidator(script string, view ledger.View, argsData []byte) error {
	switch script {
	case "pcts":
		args, err := channeltypes.DeserializeChannelConstants(argsData)
		if err != nil {
			return fmt.Errorf("decode pcts args: %w", err)
		}
		return pcts.Validate(view, args)
	case "vcts":
		args, err := channeltypes.DeserializeVCChannelConstants(argsData)
		if err != nil {
			return fmt.Errorf("decode vcts args: %w", err)
		}
		return vcts.Validate(view, args)
	case "pfls":
		if len(argsData) != chainhash.HashSize {
			return fmt.Errorf("pfls args must be exactly %d bytes, got %d", chainhash.HashSize, len(argsData))
		}
		hash, err := pfls.ArgsScriptHash(argsData)
		if err != nil {
			return fmt.Errorf("decode pfls args: %w", err)
		}
		return pfls.Validate(view, hash)
	case "vcls":
		return vcls.Validate(view)
	default:
		return fmt.Errorf("unknown script %q", script)
	}
}
