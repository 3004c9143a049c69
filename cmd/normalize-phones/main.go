// Command normalize-phones rewrites stored guest phone numbers into the
// canonical "+<digits>" form used by duplicate detection.
package main

import (
	"context"
	"flag"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"guestlist-backend/config"
	"guestlist-backend/services"
	"guestlist-backend/utils"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report changes without writing them")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	config.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	db, err := config.OpenDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}

	phone := utils.NewPhoneNormalizer(cfg.DefaultCountryPrefix)
	log.Info().Str("default_prefix", phone.DefaultPrefix).Bool("dry_run", *dryRun).Msg("normalizing guest phones")

	res, err := services.NormalizeStoredPhones(context.Background(), db, phone, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("phone normalization failed")
	}
	log.Info().
		Int("scanned", res.Scanned).
		Int("updated", res.Updated).
		Int("failed", res.Failed).
		Msg("phone normalization complete")
}
