// secstat is the admin CLI: it prepares the key material of an
// aggregator node and runs a small demonstration computation against a
// temporary store.
package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/medcollab/securestats/computation"
	"github.com/medcollab/securestats/computation/keystore"
	"github.com/medcollab/securestats/computation/service"
	"github.com/medcollab/securestats/computation/store"
)

// config is the on-disk TOML configuration.
type config struct {
	// KeyBits is the Paillier modulus size.
	KeyBits int
	// DBPath is where the bbolt database lives.
	DBPath string
	// MinParticipants is the default readiness floor for new
	// computations.
	MinParticipants int
}

func defaultConfig() config {
	return config{
		KeyBits:         keystore.DefaultBits,
		DBPath:          "secstat.db",
		MinParticipants: 3,
	}
}

// loadConfig reads the TOML file when one is given and falls back to the
// defaults otherwise.
func loadConfig(c *cli.Context) (config, error) {
	cfg := defaultConfig()
	fn := c.GlobalString("config")
	if fn == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(fn, &cfg); err != nil {
		return cfg, fmt.Errorf("reading config %s: %v", fn, err)
	}
	return cfg, nil
}

var cmds = cli.Commands{
	{
		Name:    "keygen",
		Usage:   "generate and persist the aggregator keypair",
		Aliases: []string{"k"},
		Action:  keygen,
	},
	{
		Name:    "demo",
		Usage:   "run a two-organization secure average against a temporary store",
		Aliases: []string{"d"},
		Action:  demo,
	},
}

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = "secstat"
	cliApp.Usage = "Administer a secure statistics aggregator."
	cliApp.Version = "0.1"
	cliApp.Commands = cmds
	cliApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "debug, d",
			Value: 0,
			Usage: "debug-level: 1 for terse, 5 for maximal",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to the TOML config file",
		},
	}
	cliApp.Before = func(c *cli.Context) error {
		log.SetDebugVisible(c.Int("debug"))
		return nil
	}
	log.ErrFatal(cliApp.Run(os.Args))
}

func keygen(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	st, err := store.NewBoltStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	keys := keystore.NewKeyStore(st, cfg.KeyBits)
	log.Lvl1("generating", cfg.KeyBits, "bit keypair, this can take a while")
	if err := keys.Init(random.New()); err != nil {
		return err
	}
	pub, err := keys.Public()
	if err != nil {
		return err
	}
	fmt.Println("public modulus:", pub.N.Text(16))
	fmt.Println("stored in:", cfg.DBPath)
	return nil
}

// demo runs entirely against a throwaway database and ignores the
// configured DBPath.
func demo(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	// The demo has exactly two organizations.
	min := cfg.MinParticipants
	if min > 2 {
		min = 2
	}

	dir, err := ioutil.TempDir("", "secstat-demo")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	st, err := store.NewBoltStore(filepath.Join(dir, "demo.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	rand := random.New()
	// Demo keys are small so the run stays interactive.
	keys := keystore.NewKeyStore(st, 512)
	if err := keys.Init(rand); err != nil {
		return err
	}
	svc := service.NewService(service.Config{Store: st, Keys: keys, Random: rand})

	created, err := svc.CreateComputation(&service.CreateComputation{
		Creator:         "hospital-a",
		Statistic:       computation.SecureAverage,
		Security:        computation.Homomorphic,
		Threshold:       2,
		MinParticipants: min,
	})
	if err != nil {
		return err
	}
	log.Lvl1("created computation", created.ID)

	_, err = svc.JoinComputation(&service.JoinComputation{
		ComputationID: created.ID,
		Organization:  "hospital-b",
	})
	if err != nil {
		return err
	}

	for org, values := range map[string][]string{
		"hospital-a": {"10", "20", "30"},
		"hospital-b": {"15", "25", "35"},
	} {
		reply, err := svc.SubmitShare(&service.SubmitShare{
			ComputationID: created.ID,
			Organization:  org,
			Values:        values,
		})
		if err != nil {
			return err
		}
		log.Lvl1(org, "submitted", reply.Accepted, "values, status", reply.Status)
	}

	result, err := svc.Compute(&service.Compute{ComputationID: created.ID})
	if err != nil {
		return err
	}
	if result.Status != computation.Completed {
		return fmt.Errorf("computation ended %s: %s %s",
			result.Status, result.ErrorCode, result.ErrorMessage)
	}
	fmt.Printf("secure average over %d values: %.3f\n",
		result.Result.Count, result.Result.Value)
	return nil
}
