package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"voice-campaigns-go/internal/campaign"
	"voice-campaigns-go/internal/config"
	"voice-campaigns-go/internal/contacts"
	"voice-campaigns-go/internal/export"
	"voice-campaigns-go/internal/history"
	"voice-campaigns-go/internal/logger"
	"voice-campaigns-go/internal/monade"
	"voice-campaigns-go/internal/session"
)

var (
	flagConfig        string
	flagUser          string
	flagContacts      string
	flagAssistant     string
	flagAssistantName string
	flagTrunk         string
	flagOutput        string
	flagAPIKey        string
	flagRecord        string
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "campaignctl",
		Short: "Run and inspect outbound calling campaigns",
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "config.yaml", "path to config file")
	root.PersistentFlags().StringVar(&flagUser, "user", "", "user id the campaign belongs to")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a campaign from a contact workbook and export the results",
		RunE:  runCampaign,
	}
	runCmd.Flags().StringVar(&flagContacts, "contacts", "", "contact workbook (.xlsx)")
	runCmd.Flags().StringVar(&flagAssistant, "assistant", "", "assistant id")
	runCmd.Flags().StringVar(&flagAssistantName, "assistant-name", "", "assistant display name for history")
	runCmd.Flags().StringVar(&flagTrunk, "trunk", "", "outbound trunk (defaults from config)")
	runCmd.Flags().StringVar(&flagOutput, "output", "campaign_results", "results workbook name")
	runCmd.Flags().StringVar(&flagAPIKey, "api-key", "", "calling API key (or MONADE_API_KEY)")
	_ = runCmd.MarkFlagRequired("contacts")
	_ = runCmd.MarkFlagRequired("assistant")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List saved campaign runs",
		RunE:  listHistory,
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a saved campaign run to a workbook",
		RunE:  exportRecord,
	}
	exportCmd.Flags().StringVar(&flagRecord, "record", "", "record id (defaults to the newest run)")
	exportCmd.Flags().StringVar(&flagOutput, "output", "", "output workbook name (defaults to the record name)")

	root.AddCommand(runCmd, historyCmd, exportCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCampaign(cmd *cobra.Command, args []string) error {
	log := logger.New()
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagUser == "" {
		return fmt.Errorf("--user is required")
	}
	if cfg.Monade.BaseURL == "" {
		return fmt.Errorf("monade base URL not configured (config or MONADE_BASE_URL)")
	}
	apiKey := flagAPIKey
	if apiKey == "" {
		apiKey = cfg.Monade.APIKey
	}

	list, err := contacts.Load(flagContacts)
	if err != nil {
		return fmt.Errorf("load contacts: %w", err)
	}
	log.WithField("contacts", len(list)).Info("contact workbook loaded")

	client := monade.NewClient(cfg.Monade.BaseURL, log)
	runner, err := campaign.NewRunner(campaign.Options{
		UserID:      flagUser,
		APIKey:      apiKey,
		Config:      cfg.Campaign,
		Placer:      client,
		Transcripts: client,
		Analytics:   client,
		Snapshots:   session.NewFileStore(cfg.Storage.DataDir),
		Histories:   history.NewFileStore(cfg.Storage.DataDir),
		Log:         log,
	})
	if err != nil {
		return err
	}

	runner.SetContacts(list)
	runner.SetSelectedAssistantID(flagAssistant)
	if flagAssistantName != "" {
		runner.SetAssistantName(flagAssistantName)
	}
	if flagTrunk != "" {
		runner.SetSelectedTrunk(flagTrunk)
	}
	runner.SetOutputFileName(flagOutput)

	// Ctrl-C requests cooperative cancellation; in-flight calls are
	// abandoned, not aborted.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		log.Warn("interrupt received, stopping campaign")
		runner.StopCampaign()
	}()

	if err := runner.StartCampaign(context.Background()); err != nil {
		return err
	}

	state := runner.State()
	if len(state.Results) == 0 {
		return nil
	}
	out := flagOutput
	if err := export.Write(out, state.Results); err != nil {
		return fmt.Errorf("export results: %w", err)
	}
	log.WithField("output", out).WithField("status", state.CampaignStatus).Info("campaign finished")
	return nil
}

func listHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagUser == "" {
		return fmt.Errorf("--user is required")
	}
	records, err := history.NewFileStore(cfg.Storage.DataDir).List(flagUser)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no campaign history")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED\tASSISTANT\tLINE\tTOTAL\tDONE\tNO ANSWER\tFAILED")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			rec.ID, rec.Name, rec.CreatedAt, rec.AssistantName, rec.FromNumber,
			rec.TotalContacts, rec.Completed, rec.NoAnswer, rec.Failed)
	}
	return w.Flush()
}

func exportRecord(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagUser == "" {
		return fmt.Errorf("--user is required")
	}
	records, err := history.NewFileStore(cfg.Storage.DataDir).List(flagUser)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no campaign history for user %s", flagUser)
	}
	rec := records[0]
	if flagRecord != "" {
		found := false
		for _, candidate := range records {
			if candidate.ID == flagRecord {
				rec = candidate
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("record %s not found", flagRecord)
		}
	}
	out := flagOutput
	if out == "" {
		out = rec.Name
	}
	if err := export.Write(out, rec.Results); err != nil {
		return err
	}
	fmt.Printf("exported %s (%d results) to %s\n", rec.ID, len(rec.Results), out)
	return nil
}
