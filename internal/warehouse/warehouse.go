// Package warehouse loads the seller and return-address profile stamped onto
// every carrier manifest.
package warehouse

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Profile struct {
	SellerName    string `yaml:"seller_name"`
	SellerAddress string `yaml:"seller_address"`
	SellerInvoice string `yaml:"seller_invoice"`
	ProductsDesc  string `yaml:"products_desc"`

	Return ReturnAddress `yaml:"return"`
}

type ReturnAddress struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Pin     string `yaml:"pin"`
	City    string `yaml:"city"`
	State   string `yaml:"state"`
	Country string `yaml:"country"`
	Phone   string `yaml:"phone"`
}

func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read warehouse profile: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse warehouse profile: %w", err)
	}

	if err := profile.validate(); err != nil {
		return nil, err
	}
	if profile.Return.Country == "" {
		profile.Return.Country = "India"
	}
	return &profile, nil
}

func (p *Profile) validate() error {
	missing := []string{}
	if strings.TrimSpace(p.SellerName) == "" {
		missing = append(missing, "seller_name")
	}
	if strings.TrimSpace(p.SellerAddress) == "" {
		missing = append(missing, "seller_address")
	}
	if strings.TrimSpace(p.Return.Name) == "" {
		missing = append(missing, "return.name")
	}
	if strings.TrimSpace(p.Return.Pin) == "" {
		missing = append(missing, "return.pin")
	}
	if len(missing) > 0 {
		return fmt.Errorf("warehouse profile missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
