// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

// Package main provides build targets for gdao using Mage.
//
// Usage:
//
//	mage build          Compile the gdao binary to bin/
//	mage test:all       Run every package test
//	mage test:unit      Run tests without live databases (-short)
//	mage test:postgres  Run the DAO tests against $GDAO_TEST_POSTGRES
//	mage test:cover     Write coverage.out and print the summary
//	mage lint           Run go vet and golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install gdao to GOPATH/bin
package main
