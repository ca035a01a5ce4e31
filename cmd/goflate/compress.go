// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"os"
	"sync"

	"cloudeng.io/cmdutil"
	"cloudeng.io/errors"
	"github.com/cosnicolaou/goflate"
	"golang.org/x/crypto/ssh/terminal"
)

func compress(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cl := values.(*compressFlags)
	cmdutil.HandleSignals(cancel, os.Interrupt)

	framing, err := parseFraming(cl.Framing)
	if err != nil {
		return err
	}
	opts := commonOptions(&cl.CommonFlags)
	opts = append(opts,
		goflate.WithFraming(framing),
		goflate.WithLevel(goflate.Level(cl.Level)))
	if len(cl.Name) > 0 {
		opts = append(opts, goflate.WithName(cl.Name))
	}
	if len(cl.Comment) > 0 {
		opts = append(opts, goflate.WithComment(cl.Comment))
	}

	var rd io.Reader
	var size int64 = -1
	readerCleanup := func(context.Context) error { return nil }
	if len(args) == 0 {
		rd = os.Stdin
	} else {
		rd, size, readerCleanup, err = openFileOrURL(ctx, args[0])
		if err != nil {
			return err
		}
	}
	defer readerCleanup(ctx)

	wr, writerCleanup, err := createFile(ctx, cl.OutputFile)
	if err != nil {
		return err
	}

	var progressBarWg sync.WaitGroup
	var progressCh chan int64
	isTTY := terminal.IsTerminal(int(os.Stdout.Fd()))
	if cl.ProgressBar && size > 0 && (len(cl.OutputFile) > 0 || !isTTY) {
		progressCh = make(chan int64, 16)
		progressWr := os.Stdout
		if !isTTY {
			progressWr = os.Stderr
		}
		progressBarWg.Add(1)
		go func() {
			progressBar(ctx, progressWr, progressCh, size)
			progressBarWg.Done()
		}()
		rd = &countingReader{r: rd, ch: progressCh}
	}

	cw, err := goflate.NewWriter(wr, opts...)
	if err != nil {
		return err
	}

	errs := &errors.M{}
	_, err = io.Copy(cw, rd)
	errs.Append(err)
	errs.Append(cw.Close())
	errs.Append(writerCleanup(ctx))

	if progressCh != nil {
		close(progressCh)
		progressBarWg.Wait()
	}
	return errs.Err()
}
