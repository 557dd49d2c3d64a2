package main

import (
	"context"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	firebaseapp "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"beacon/config"
	"beacon/internal/appcontext"
	identityfirebase "beacon/internal/infra/identity/firebase"
	logs "beacon/internal/infra/log"
	profilefirestore "beacon/internal/infra/profile/firestore"
	"beacon/internal/usecase"
	"beacon/internal/usecase/impl"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

type runReconcilerParams struct {
	fx.In
	fx.Lifecycle

	Users  usecase.UserStreamUsecase
	Logger *slog.Logger
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		fx.Invoke(
			runReconciler,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		newFirestoreClient,
	)
}

// newFirestoreClient opens the document store client behind the profile
// repository. Credentials come from the configured service account file, or
// from application default credentials when no file is configured.
func newFirestoreClient(ctx context.Context, cfg *config.Config) (*firestore.Client, error) {
	if cfg.Firebase == nil {
		return nil, errors.New("firebase configuration is required")
	}

	var opts []option.ClientOption
	if cfg.Firebase.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsPath))
	}

	app, err := firebaseapp.NewApp(ctx, &firebaseapp.Config{ProjectID: cfg.Firebase.ProjectID}, opts...)
	if err != nil {
		return nil, err
	}

	return app.Firestore(ctx)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			profilefirestore.NewProfileRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			identityfirebase.NewProvider,
		),
	)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewReconcilerService,
			impl.NewLinkingService,
			impl.NewAuthService,
			impl.NewProfileService,
		),
	)
}

// runReconciler drives the reconciliation engine for the lifetime of the app.
func runReconciler(params runReconcilerParams) {
	runCtx, cancel := context.WithCancel(context.Background())

	runID := appcontext.NewRequestID()
	runCtx = appcontext.WithRequestID(runCtx, runID)
	runCtx = appcontext.WithLogger(runCtx, params.Logger.With(slog.String("runId", runID)))

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := params.Users.Run(runCtx); err != nil {
					params.Logger.Error("Reconciliation engine stopped", slog.Any("error", err))
					os.Exit(1)
				}
			}()

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()

			return nil
		},
	})
}
