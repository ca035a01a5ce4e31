// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"time"

	"cloudeng.io/cmdutil"
	"cloudeng.io/errors"
	"github.com/cosnicolaou/goflate"
)

func inspectFile(ctx context.Context, cl *inspectFlags, name string) error {
	rd, _, readerCleanup, err := openFileOrURL(ctx, name)
	if err != nil {
		return err
	}
	defer readerCleanup(ctx)

	framing, err := parseFraming(cl.Framing)
	if err != nil {
		return err
	}
	opts := commonOptions(&cl.CommonFlags)
	opts = append(opts, goflate.WithFraming(framing))

	cr, err := goflate.NewReader(rd, opts...)
	if err != nil {
		return err
	}

	n, err := io.Copy(ioutil.Discard, cr)
	if err != nil {
		return fmt.Errorf("%v: %v", name, err)
	}

	fmt.Printf("=== %v ===\n", name)
	fmt.Printf("framing            : %v\n", cl.Framing)
	fmt.Printf("decompressed bytes : %v\n", n)
	if framing == goflate.Gzip {
		hdr := cr.Codec().GzipHeader()
		if len(hdr.Name) > 0 {
			fmt.Printf("original name      : %v\n", hdr.Name)
		}
		if len(hdr.Comment) > 0 {
			fmt.Printf("comment            : %v\n", hdr.Comment)
		}
		if hdr.ModTime > 0 {
			fmt.Printf("mod time           : %v\n", time.Unix(int64(hdr.ModTime), 0).UTC())
		}
	}
	return nil
}

func inspect(ctx context.Context, values interface{}, args []string) error {
	ctx, cancel := context.WithCancel(ctx)
	cmdutil.HandleSignals(cancel, os.Interrupt)
	cl := values.(*inspectFlags)
	errs := &errors.M{}
	for _, arg := range args {
		errs.Append(inspectFile(ctx, cl, arg))
	}
	return errs.Err()
}
