// This program performs administrative tasks against a stored ledger.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/ledger/app/tooling/admin/commands"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args        conf.Args
		GenesisPath string `conf:"default:zblock/genesis.json"`
		Storage     string `conf:"default:disk"`
		DBPath      string `conf:"default:zblock/blocks"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "ledger administration",
		},
	}

	const prefix = "LEDGER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	gen, err := genesis.Load(cfg.GenesisPath)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	serializer, err := storage.Open(cfg.Storage, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}

	ev := func(v string, args ...any) {
		log.Debugw(fmt.Sprintf(v, args...))
	}

	st, err := state.New(state.Config{
		Genesis:   gen,
		Storage:   serializer,
		EvHandler: ev,
	})
	if err != nil {
		serializer.Close()
		return err
	}
	defer st.Shutdown()

	return processCommands(cfg.Args, st)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, st *state.State) error {
	switch args.Num(0) {
	case "bals":
		if err := commands.Balances(args, st); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "trans":
		if err := commands.Transactions(args, st); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}
	case "verify":
		if err := commands.Verify(st); err != nil {
			return fmt.Errorf("verifying chain: %w", err)
		}
	default:
		fmt.Println("bals [address]: show the balances replayed from the stored chain")
		fmt.Println("trans [address]: show the mined transactions")
		fmt.Println("verify: validate every block of the stored chain")
	}

	return nil
}
