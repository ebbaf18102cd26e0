package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path"

	"github.com/youta-t/flarc"

	"github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/common"
	subcred "github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/credentials"
	subdeploy "github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/deploy"
	submigrate "github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/migrate"
	subpropagate "github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/propagate"
	subsecret "github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/secret"
	subseed "github.com/Bengo-Hub/bengobox-erp-api-sub002/cmd/deployctl/subcommands/seed"
	"github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/utils/try"
)

func main() {
	name := path.Base(os.Args[0])
	logger := log.New(os.Stderr, "", log.LstdFlags)
	logger.SetPrefix(fmt.Sprintf("[%s] ", name))

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, os.Kill,
	)
	defer cancel()

	cf := common.DefaultCommonFlags()
	credentials := try.To(subcred.New()).OrFatal(logger)
	migrate := try.To(submigrate.New()).OrFatal(logger)
	secret := try.To(subsecret.New()).OrFatal(logger)
	propagate := try.To(subpropagate.New()).OrFatal(logger)
	seed := try.To(subseed.New()).OrFatal(logger)
	deploy := try.To(subdeploy.New()).OrFatal(logger)

	deployctl := try.To(
		flarc.NewCommandGroup(
			"Deployment orchestrator for the bengobox ERP backend",
			cf,
			flarc.WithSubcommand("credentials", credentials),
			flarc.WithSubcommand("migrate", migrate),
			flarc.WithSubcommand("secret", secret),
			flarc.WithSubcommand("propagate", propagate),
			flarc.WithSubcommand("seed", seed),
			flarc.WithSubcommand("deploy", deploy),
		),
	).OrFatal(logger)

	os.Exit(flarc.Run(ctx, deployctl, flarc.WithHelp(true)))
}
