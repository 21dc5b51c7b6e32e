package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/gregLibert/ese-session/pkg/config"
	"github.com/gregLibert/ese-session/pkg/ese"
	"github.com/gregLibert/ese-session/pkg/gp"
	"github.com/gregLibert/ese-session/pkg/iso7816"
	"github.com/gregLibert/ese-session/pkg/link"
)

// defaultConfigPath is read when ESE_CONFIG is not set. A missing file is not an error.
const defaultConfigPath = "ese.toml"

// defaultSimulator is the address of a vpcd-style simulator on this host.
const defaultSimulator = "localhost:35963"

func main() {
	// --- 1. Configuration ---
	path := os.Getenv("ESE_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.LoadOrEmpty(path)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	// --- 2. Session Setup ---
	session, err := newSession(cfg)
	if err != nil {
		log.Fatalf("Error creating session: %v", err)
	}

	if err := session.Init(); err != nil {
		log.Fatalf("Error opening secure element: %v", err)
	}

	defer func() {
		if err := session.Close(); err != nil {
			log.Printf("Warning: Failed to close session: %v", err)
		}
	}()

	client := iso7816.NewClient(session)

	// --- 3. Execution Flow ---
	if err := step1SelectISD(client); err != nil {
		log.Printf("Step 1 Warning: %v", err)
	}
	if err := step2ReadCPLC(client); err != nil {
		log.Printf("Step 2 Warning: %v", err)
	}
	if err := step3ReadCardData(client); err != nil {
		log.Printf("Step 3 Warning: %v", err)
	}

	stats := session.Stats()
	fmt.Printf("\n>> Done: %d exchange(s), %d frame(s), %d failure(s)\n", stats.Exchanges, stats.Frames, stats.Failures)
}

// =========================================================================
// Helper Functions
// =========================================================================

// newSession picks the driver named by ESE_TRANSPORT ("pcsc" or "socket").
func newSession(cfg *config.Config) (*ese.Session, error) {
	params := ese.Params{
		IFSC: cfg.GetInt(config.KeyIFSC, link.DefaultIFSC),
		IFSD: cfg.GetInt(config.KeyIFSD, link.DefaultIFSD),
	}
	factory := cfg.LoggerFactory()

	sc := ese.Config{
		Properties:    cfg,
		LoggerFactory: factory,
	}

	transport := cfg.GetString(config.KeyTransport, "pcsc")
	switch transport {
	case "pcsc":
		sc.Driver = link.PCSCDriver{Params: params, LoggerFactory: factory}
		if !cfg.Has(config.KeyDevNode) {
			// First reader found.
			sc.Device = "*"
		}
	case "socket":
		sc.Driver = link.SocketDriver{Params: params, LoggerFactory: factory}
		if !cfg.Has(config.KeyDevNode) {
			sc.Device = defaultSimulator
		}
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}

	fmt.Printf(">> Transport: %s (IFSC %d, IFSD %d)\n", transport, params.IFSC, params.IFSD)
	return ese.New(sc)
}

func banner(title string) {
	fmt.Println("\n=============================================")
	fmt.Println(" " + title)
	fmt.Println("=============================================")
}

// step1SelectISD selects the Issuer Security Domain and prints its FCI.
func step1SelectISD(client *iso7816.Client) error {
	banner(fmt.Sprintf("Step 1: SELECT ISD (%X)", gp.DefaultISDAID))

	trace, err := client.Send(iso7816.SelectByAID(iso7816.BasicClass, gp.DefaultISDAID))
	if err != nil {
		return fmt.Errorf("transmission failed: %w", err)
	}

	res, err := iso7816.NewSelectResult(trace)
	if err != nil {
		return fmt.Errorf("result creation failed: %w", err)
	}
	fmt.Println(res.Describe())

	if !res.IsSuccess() {
		return fmt.Errorf("ISD selection failed with status: %s", res.Status().Verbose())
	}

	fci, err := gp.ParseSecurityDomainFCI(res.Data())
	if err != nil {
		return fmt.Errorf("failed to parse ISD FCI: %w", err)
	}
	fmt.Println(fci.Describe())
	return nil
}

// step2ReadCPLC reads and prints the Card Production Life Cycle data.
func step2ReadCPLC(client *iso7816.Client) error {
	banner("Step 2: GET DATA CPLC (9F7F)")

	cplc, err := gp.GetCPLC(client)
	if err != nil {
		var se *gp.StatusError
		if errors.As(err, &se) {
			fmt.Printf(">> CPLC not available: %s\n", se.Status.Verbose())
			return nil
		}
		return err
	}
	fmt.Println(cplc.Describe())
	return nil
}

// step3ReadCardData reads and prints the card recognition data.
func step3ReadCardData(client *iso7816.Client) error {
	banner("Step 3: GET DATA CARD RECOGNITION DATA (66)")

	value, err := gp.GetCardData(client)
	if err != nil {
		return err
	}
	fmt.Printf(">> Raw: %X\n", value)

	md, err := gp.ParseCardRecognitionData(value)
	if err != nil {
		return err
	}
	fmt.Printf("   Recognition OID: %X\n", md.RecognitionOID)
	if len(md.SecureChannel) > 0 {
		fmt.Printf("   Secure Channel:  %X\n", md.SecureChannel)
	}
	return nil
}
