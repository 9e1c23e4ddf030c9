package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/prieelo/prieelo/blobstore"
	"github.com/prieelo/prieelo/notifs"
	"github.com/prieelo/prieelo/platform"
	"github.com/prieelo/prieelo/util/cliutil"
)

func main() {
	app := cli.NewApp()
	app.Name = "prieelo"
	app.Usage = "social platform for documenting creative reuse projects"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db-url",
			Value:   "sqlite://data/prieelo/prieelo.sqlite",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			Value:   40,
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
		},
		&cli.StringFlag{
			Name:    "api-listen",
			Value:   ":4989",
			EnvVars: []string{"API_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "jwt-secret",
			EnvVars: []string{"JWT_SECRET"},
		},
		&cli.StringFlag{
			Name:    "s3-endpoint",
			EnvVars: []string{"S3_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "s3-access-key",
			EnvVars: []string{"S3_ACCESS_KEY"},
		},
		&cli.StringFlag{
			Name:    "s3-secret-key",
			EnvVars: []string{"S3_SECRET_KEY"},
		},
		&cli.StringFlag{
			Name:    "s3-bucket",
			Value:   "prieelo-images",
			EnvVars: []string{"S3_BUCKET"},
		},
		&cli.BoolFlag{
			Name:    "s3-ssl",
			Value:   true,
			EnvVars: []string{"S3_SSL"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			EnvVars: []string{"LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			EnvVars: []string{"LOG_FORMAT"},
		},
	}

	app.Action = func(cctx *cli.Context) error {
		log, err := cliutil.SetupSlog(cliutil.LogOptions{
			Level:  cctx.String("log-level"),
			Format: cctx.String("log-format"),
		})
		if err != nil {
			return err
		}

		jwtSecret := cctx.String("jwt-secret")
		if jwtSecret == "" {
			return fmt.Errorf("jwt-secret is required")
		}

		db, err := cliutil.SetupDatabase(cctx.String("db-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}

		var blobs blobstore.Store
		if endpoint := cctx.String("s3-endpoint"); endpoint != "" {
			blobs, err = blobstore.NewMinioStore(blobstore.MinioConfig{
				Endpoint:  endpoint,
				AccessKey: cctx.String("s3-access-key"),
				SecretKey: cctx.String("s3-secret-key"),
				Bucket:    cctx.String("s3-bucket"),
				UseSSL:    cctx.Bool("s3-ssl"),
			})
			if err != nil {
				return err
			}
		} else {
			log.Warn("no s3 endpoint configured, storing uploads in memory")
			blobs = blobstore.NewMemoryStore()
		}

		srv, err := platform.NewServer(db, blobs, notifs.NewSlogNotifier(log), []byte(jwtSecret))
		if err != nil {
			return err
		}

		listen := cctx.String("api-listen")
		log.Info("starting api", "addr", listen)
		return srv.RunAPI(listen)
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}
