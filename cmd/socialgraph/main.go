// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command socialgraph manages a social graph from the command line, an
// interactive menu, or an HTTP API.
//
// Usage:
//
//	socialgraph add alice
//	socialgraph add bob
//	socialgraph befriend alice bob
//	socialgraph recommend alice --with-rank
//	socialgraph serve --addr :5000 --watch
//
// Example requests against `serve`:
//
//	curl http://localhost:5000/v1/social/users
//	curl -X POST http://localhost:5000/v1/social/users -d '{"username":"carol"}'
//	curl 'http://localhost:5000/v1/social/mutual?a=alice&b=carol'
package main

import (
	"context"
	"os"

	"github.com/AleutianAI/AleutianSocial/pkg/ux"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		ux.Stdio().Error("%v", err)
		os.Exit(1)
	}
}
