package api

import (
	"degentalk-backend/config"
	"degentalk-backend/internal/featuregate"
	"degentalk-backend/internal/services"
)

// buildEconomy constructs the service graph behind the economy endpoints.
func buildEconomy(cfg *config.Config) (*services.EconomyService, *featuregate.Evaluator, error) {
	if err := services.SeedFeatureGates(); err != nil {
		return nil, nil, err
	}
	evaluator, err := services.LoadGateEvaluator()
	if err != nil {
		return nil, nil, err
	}

	ledger := services.NewLedgerService(cfg.JWTSecret, cfg.Economy.SettleRetries)
	guard := services.NewRateGuard(cfg.Economy)

	var xp services.XPReporter = services.NoopXPReporter{}
	if cfg.XPServiceURL != "" {
		xp = services.NewHTTPXPReporter(cfg.XPServiceURL)
	}

	var kyc services.EligibilityChecker = services.AlwaysEligible{}
	if cfg.KYCServiceURL != "" {
		kyc = services.NewHTTPEligibilityChecker(cfg.KYCServiceURL)
	}

	econ := services.NewEconomyService(
		cfg.Economy,
		ledger,
		guard,
		evaluator,
		services.ConfiguredGateway{},
		xp,
		kyc,
	)
	return econ, evaluator, nil
}
