package main

import (
	"bufio"
	"context"
	"datepoll/internal/candidates"
	"datepoll/internal/config"
	"datepoll/internal/dav"
	"datepoll/internal/docstore"
	"datepoll/internal/google"
	"datepoll/internal/ics"
	"datepoll/internal/models"
	"datepoll/internal/sqlitedb"
	"datepoll/internal/store"
	"datepoll/internal/syncer"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

func main() {
	config.LoadDotEnv()

	app := &cli.App{
		Name:  "datepoll",
		Usage: "Create date polls and collect votes in a remote document store.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "datepoll.yaml", EnvVars: []string{"DATEPOLL_CONFIG"}, Usage: "Path to an optional YAML config file."},
			&cli.StringFlag{Name: "log-level", Usage: "Override LOG_LEVEL (debug, info, warn, error)."},
		},
		Commands: []*cli.Command{
			authCommand(),
			createCommand(),
			showCommand(),
			updateCommand(),
			voteCommand(),
			exportCommand(),
			publishCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// session bundles what every command needs.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	location *time.Location
	store    *store.EventStore
	close    func()
}

func openSession(c *cli.Context) (*session, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := cfg.LogLevel
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger := setupLogger(level)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	events, closeFn, err := openCollection(c.Context, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("Opened event collection.", "backend", cfg.Backend)

	return &session{
		cfg:      cfg,
		logger:   logger,
		location: loc,
		store:    store.New(logger, events, loc),
		close:    closeFn,
	}, nil
}

func openCollection(ctx context.Context, cfg *config.Config, logger *slog.Logger) (docstore.Collection, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := sqlitedb.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		return sqlitedb.NewCollection(db, models.CollectionName), func() { db.Close() }, nil
	case config.BackendWebDAV:
		httpClient := dav.NewHTTPClient(cfg.WebDAV.Username, cfg.WebDAV.Password)
		coll, err := dav.NewCollection(ctx, logger, httpClient, cfg.WebDAV.Endpoint, cfg.WebDAV.Root)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open webdav collection: %w", err)
		}
		return coll, func() {}, nil
	case config.BackendFirestore:
		opts, err := google.ClientOptions(ctx, google.Credentials{
			ServiceAccountFile: cfg.Firestore.CredentialsFile,
			ClientID:           cfg.Firestore.ClientID,
			ClientSecret:       cfg.Firestore.ClientSecret,
			Account:            cfg.Firestore.Account,
		})
		if err != nil {
			return nil, nil, err
		}
		coll, err := google.NewFirestoreCollection(ctx, logger, cfg.Firestore.ProjectID, models.CollectionName, opts...)
		if err != nil {
			return nil, nil, err
		}
		return coll, func() { coll.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// fetch loads an event, marking the store busy around the call.
func (s *session) fetch(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("an event id is required")
	}
	s.store.StartLoading()
	defer s.store.FinishLoading()
	return s.store.FetchEvent(ctx, id)
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get a Firestore token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			oauthConfig, err := authFlowConfig(cfg)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			tokenFile := google.TokenFile(strings.TrimSpace(accountName))

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

// authFlowConfig uses the OAuth client from the firestore section, which
// GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET override.
func authFlowConfig(cfg *config.Config) (*oauth2.Config, error) {
	return google.GetOAuthConfigForAuthFlow(cfg.Firestore.ClientID, cfg.Firestore.ClientSecret)
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create an event with candidate dates.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Required: true},
			&cli.StringFlag{Name: "description"},
			&cli.StringSliceFlag{Name: "date", Usage: "Candidate as FROM or FROM/TO in " + candidates.Layout + ". Repeatable."},
			&cli.StringFlag{Name: "rrule", Usage: "Generate candidates from a recurrence rule, e.g. FREQ=WEEKLY;BYDAY=FR."},
			&cli.StringFlag{Name: "start", Usage: "First occurrence for --rrule, in " + candidates.Layout + "."},
			&cli.DurationFlag{Name: "duration", Usage: "Length of each generated candidate."},
			&cli.IntFlag{Name: "count", Value: 5, Usage: "Maximum number of generated candidates."},
		},
		Action: func(c *cli.Context) error {
			s, err := openSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			dates, err := candidatesFromFlags(c, s.location)
			if err != nil {
				return err
			}

			id, err := s.store.CreateEvent(c.Context, store.NewEvent{
				Title:       c.String("title"),
				Description: c.String("description"),
				Dates:       dates,
			})
			if err != nil {
				return fmt.Errorf("failed to create event: %w", err)
			}

			s.logger.Info("Created event.", "id", id, "candidates", len(dates))
			fmt.Println(id)
			return nil
		},
	}
}

func candidatesFromFlags(c *cli.Context, loc *time.Location) ([]models.DateCandidate, error) {
	if rule := c.String("rrule"); rule != "" {
		start, err := time.ParseInLocation(candidates.Layout, c.String("start"), loc)
		if err != nil {
			return nil, fmt.Errorf("--rrule needs a valid --start: %w", err)
		}
		return candidates.Expand(rule, start, c.Duration("duration"), c.Int("count"))
	}
	return candidates.Parse(c.StringSlice("date"), loc)
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show an event with its vote tally.",
		ArgsUsage: "EVENT_ID",
		Action: func(c *cli.Context) error {
			s, err := openSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.fetch(c.Context, c.Args().First()); err != nil {
				return fmt.Errorf("failed to fetch event: %w", err)
			}
			printEvent(os.Stdout, s.store.Event())
			return nil
		},
	}
}

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Change the title, description or candidate dates of an event.",
		ArgsUsage: "EVENT_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title"},
			&cli.StringFlag{Name: "description"},
			&cli.StringSliceFlag{Name: "date", Usage: "Replace all candidates. Repeatable."},
		},
		Action: func(c *cli.Context) error {
			s, err := openSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			in := store.EventUpdate{ID: c.Args().First()}
			if c.IsSet("title") {
				title := c.String("title")
				in.Title = &title
			}
			if c.IsSet("description") {
				description := c.String("description")
				in.Description = &description
			}
			if c.IsSet("date") {
				if in.Dates, err = candidates.Parse(c.StringSlice("date"), s.location); err != nil {
					return err
				}
			}

			if err := s.store.SetEvent(c.Context, in); err != nil {
				return fmt.Errorf("failed to update event: %w", err)
			}
			s.logger.Info("Updated event.", "id", s.store.EventID())
			return nil
		},
	}
}

func voteCommand() *cli.Command {
	return &cli.Command{
		Name:      "vote",
		Usage:     "Add a participant's scores to an event.",
		ArgsUsage: "EVENT_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Required: true},
			&cli.StringSliceFlag{Name: "score", Usage: "CANDIDATE=SCORE with SCORE 0 (no), 1 (maybe) or 2 (yes). Repeatable."},
		},
		Action: func(c *cli.Context) error {
			s, err := openSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			id := c.Args().First()
			if err := s.fetch(c.Context, id); err != nil {
				return fmt.Errorf("failed to fetch event: %w", err)
			}

			votes := s.store.Votes()
			ballot, err := parseBallot(c.String("name"), c.StringSlice("score"))
			if err != nil {
				return err
			}
			ballot.ID = models.NextVoteID(votes)
			if err := models.ValidateBallot(ballot, s.store.Dates()); err != nil {
				return err
			}

			votes = append(votes, ballot)
			if err := s.store.SetEvent(c.Context, store.EventUpdate{ID: id, Votes: votes}); err != nil {
				return fmt.Errorf("failed to save vote: %w", err)
			}
			s.logger.Info("Recorded vote.", "event", id, "name", ballot.Name)
			return nil
		},
	}
}

func parseBallot(name string, scores []string) (models.VoteRecord, error) {
	ballot := models.VoteRecord{Name: name, Vote: make(map[string]int, len(scores))}
	for _, s := range scores {
		key, value, ok := strings.Cut(s, "=")
		if !ok {
			return ballot, fmt.Errorf("invalid score %q, want CANDIDATE=SCORE", s)
		}
		candidateID, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return ballot, fmt.Errorf("invalid candidate in %q: %w", s, err)
		}
		score, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return ballot, fmt.Errorf("invalid score in %q: %w", s, err)
		}
		ballot.Vote[models.ScoreKey(candidateID)] = score
	}
	return ballot, nil
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write the candidate dates of an event as iCalendar.",
		ArgsUsage: "EVENT_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "File to write instead of stdout."},
		},
		Action: func(c *cli.Context) error {
			s, err := openSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.fetch(c.Context, c.Args().First()); err != nil {
				return fmt.Errorf("failed to fetch event: %w", err)
			}

			var w io.Writer = os.Stdout
			if path := c.String("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("unable to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return ics.Encode(w, ics.Calendar(s.store.Event()))
		},
	}
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Publish the candidate dates of an event to a CalDAV calendar.",
		ArgsUsage: "EVENT_ID",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be published without making changes."},
		},
		Action: func(c *cli.Context) error {
			s, err := openSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			if s.cfg.CalDAV.Calendar == "" {
				return fmt.Errorf("CALDAV_CALENDAR_NAME environment variable not set")
			}
			if err := s.fetch(c.Context, c.Args().First()); err != nil {
				return fmt.Errorf("failed to fetch event: %w", err)
			}

			httpClient := dav.NewHTTPClient(s.cfg.CalDAV.Username, s.cfg.CalDAV.Password)
			calendar, err := dav.NewCalendarClient(c.Context, s.logger, httpClient, s.cfg.CalDAV.Endpoint, s.cfg.CalDAV.Calendar)
			if err != nil {
				return fmt.Errorf("failed to create caldav client: %w", err)
			}

			p, err := syncer.NewSyncer(s.logger, calendar, s.cfg.CalDAV.StateFile, c.Bool("dry-run"))
			if err != nil {
				return fmt.Errorf("failed to create publisher: %w", err)
			}
			if _, err := p.Sync(c.Context, s.store.Event()); err != nil {
				return fmt.Errorf("publish failed: %w", err)
			}
			return nil
		},
	}
}

func printEvent(w io.Writer, ev models.Event) {
	fmt.Fprintf(w, "%s (%s)\n", ev.Title, ev.ID)
	if ev.Description != "" {
		fmt.Fprintf(w, "%s\n", ev.Description)
	}
	fmt.Fprintln(w)

	tally := models.Tally(ev.Dates, ev.Votes)
	for i, d := range ev.Dates {
		when := d.From.Format("2006-01-02 (Mon) 15:04")
		if d.To != nil {
			when += " - " + d.To.In(d.From.Location()).Format("15:04")
		}
		fmt.Fprintf(w, "  [%d] %s  score %d from %d\n", d.ID, when, tally[i].Total, tally[i].Voters)
	}

	if len(ev.Votes) > 0 {
		fmt.Fprintln(w)
	}
	for _, v := range ev.Votes {
		var parts []string
		for _, d := range ev.Dates {
			if score, ok := v.Score(d.ID); ok {
				parts = append(parts, fmt.Sprintf("%d=%s", d.ID, scoreMark(score)))
			}
		}
		fmt.Fprintf(w, "  %s: %s\n", v.Name, strings.Join(parts, " "))
	}
}

func scoreMark(score int) string {
	switch score {
	case models.ScoreYes:
		return "yes"
	case models.ScoreMaybe:
		return "maybe"
	case models.ScoreNo:
		return "no"
	}
	return strconv.Itoa(score)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
