package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard asks for the main settings interactively, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to jsonstore! Let's configure your storefront.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Store name.
	namePrompt := promptui.Prompt{
		Label:   "Store name",
		Default: cfg.StoreName,
	}
	name, err := namePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("store name: %w", err)
	}
	cfg.StoreName = name

	// 2. Port.
	portPrompt := promptui.Prompt{
		Label:    "Port",
		Default:  strconv.Itoa(cfg.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	// 3. Catalog location.
	catalogPrompt := promptui.Prompt{
		Label:   "Catalog JSON (URL or file, blank for the sample catalog)",
		Default: "",
	}
	cfg.Catalog, err = catalogPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	// 4. Cart storage.
	storagePrompt := promptui.Select{
		Label: "Where should carts be kept?",
		Items: []string{
			"sqlite — survives restarts",
			"memory — lost when the server stops",
		},
	}
	storageIdx, _, err := storagePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("storage selection: %w", err)
	}
	cfg.Ephemeral = storageIdx == 1

	if !cfg.Ephemeral {
		dataPrompt := promptui.Prompt{
			Label:   "Data directory",
			Default: cfg.DataDir,
		}
		cfg.DataDir, err = dataPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("data dir: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
