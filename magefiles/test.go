// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets.
type Test mg.Namespace

// All runs every package test. The PostgreSQL test skips unless
// GDAO_TEST_POSTGRES is set.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Unit runs the tests in short mode.
func (Test) Unit() error {
	return sh.RunV(binGo, "test", "-short", "./...")
}

// Postgres runs the DAO tests against the server named by GDAO_TEST_POSTGRES.
func (Test) Postgres() error {
	if os.Getenv("GDAO_TEST_POSTGRES") == "" {
		return fmt.Errorf("GDAO_TEST_POSTGRES must hold a postgres:// descriptor")
	}
	return sh.RunV(binGo, "test", "-v", "-run", "TestPostgres", "./internal/dao/")
}

// Cover writes coverage.out and prints per-function coverage.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile="+coverOutput, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+coverOutput)
}
