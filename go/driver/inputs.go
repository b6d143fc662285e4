// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cliUtils "github.com/Fantom-foundation/blue-simulation/go/driver/cli"
	"github.com/Fantom-foundation/blue-simulation/go/simulation"
	"github.com/Fantom-foundation/blue-simulation/go/st"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func loadInputs(context *cli.Context) (*st.State, []simulation.Operation, error) {
	initial, err := st.ImportStateJSON(cliUtils.StateFlag.Fetch(context))
	if err != nil {
		return nil, nil, err
	}
	ops, err := loadOperations(cliUtils.OperationsFlag.Fetch(context))
	if err != nil {
		return nil, nil, err
	}
	return initial, ops, nil
}

// loadOperations reads a list of operations. Files with a .yaml or .yml
// extension are converted to JSON first; amounts and addresses must be quoted
// in YAML since unquoted hex values are read as numbers.
func loadOperations(path string) ([]simulation.Operation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if data, err = yamlToJson(data); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	ops, err := simulation.UnmarshalOperations(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return ops, nil
}

func yamlToJson(data []byte) ([]byte, error) {
	var document any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, err
	}
	return json.Marshal(document)
}
