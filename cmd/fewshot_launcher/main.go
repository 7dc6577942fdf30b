// Copyright 2023-2026 The FewShot Launcher Authors. SPDX-License-Identifier: Apache-2.0

// fewshot_launcher lets one test the shipped or previously trained weights of the few-shot model
// families, or train new models, through interactive menus. The subcommands run the same flows
// without menus.
//
// The learners themselves are Python programs living in the project directory (--project_dir).
package main

import (
	"context"
	"os"
	"os/signal"

	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)
	defer klog.Flush()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		klog.Errorf("%v", err)
		klog.Flush()
		os.Exit(1)
	}
}
