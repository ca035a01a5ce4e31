// Copyright 2021 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"cloudeng.io/cmdutil"
	"cloudeng.io/cmdutil/subcmd"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/cosnicolaou/goflate"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/schollz/progressbar/v2"
)

// CommonFlags are shared by every subcommand: they select the
// container framing and the underlying DEFLATE window/memory
// parameters, mirroring spec.md §6's construction parameters.
type CommonFlags struct {
	Framing     string `subcmd:"framing,gzip,'container framing: raw, zlib, or gzip'"`
	WindowBits  int    `subcmd:"window-bits,15,'DEFLATE window size in bits, 9-15'"`
	MemoryLevel int    `subcmd:"memory-level,8,'internal compression memory level, 1-9'"`
	Verbose     bool   `subcmd:"verbose,false,verbose debug/trace information"`
}

type compressFlags struct {
	CommonFlags
	Level       int    `subcmd:"level,6,'compression level, 0 (store) to 9 (best)'"`
	Name        string `subcmd:"name,,'GZIP original file name metadata'"`
	Comment     string `subcmd:"comment,,'GZIP comment metadata'"`
	OutputFile  string `subcmd:"output,,'output file or s3 path, omit for stdout'"`
	ProgressBar bool   `subcmd:"progress,true,display a progress bar"`
}

type decompressFlags struct {
	CommonFlags
	OutputFile  string `subcmd:"output,,'output file or s3 path, omit for stdout'"`
	ProgressBar bool   `subcmd:"progress,true,display a progress bar"`
}

type inspectFlags struct {
	CommonFlags
}

var cmdSet *subcmd.CommandSet

func init() {
	compressCmd := subcmd.NewCommand("compress",
		subcmd.MustRegisterFlagStruct(&compressFlags{}, nil, nil),
		compress, subcmd.AtLeastNArguments(0))
	compressCmd.Document(`compress a file or stdin using DEFLATE. Files may be local, on S3 or a URL.`)

	decompressCmd := subcmd.NewCommand("decompress",
		subcmd.MustRegisterFlagStruct(&decompressFlags{}, nil, nil),
		decompress, subcmd.AtLeastNArguments(0))
	decompressCmd.Document(`decompress a DEFLATE/ZLIB/GZIP file or stdin. Files may be local, on S3 or a URL.`)

	inspectCmd := subcmd.NewCommand("inspect",
		subcmd.MustRegisterFlagStruct(&inspectFlags{}, nil, nil),
		inspect, subcmd.AtLeastNArguments(1))
	inspectCmd.Document(`decompress one or more files while reporting the decompressed size and container metadata, without writing the recovered data anywhere.`)

	cmdSet = subcmd.NewCommandSet(compressCmd, decompressCmd, inspectCmd)
	cmdSet.Document(`compress, decompress, and inspect DEFLATE/ZLIB/GZIP streams. Files may be local, on S3 or a URL.`)

	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(
			s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
}

func main() {
	cmdSet.MustDispatch(context.Background())
}

func parseFraming(s string) (goflate.Framing, error) {
	switch strings.ToLower(s) {
	case "raw", "deflate":
		return goflate.Raw, nil
	case "zlib":
		return goflate.Zlib, nil
	case "gzip", "gz":
		return goflate.Gzip, nil
	}
	return goflate.Raw, fmt.Errorf("unrecognized framing %q: want raw, zlib, or gzip", s)
}

func commonOptions(cl *CommonFlags) []goflate.CodecOption {
	return []goflate.CodecOption{
		goflate.WithWindowBits(cl.WindowBits),
		goflate.WithMemoryLevel(cl.MemoryLevel),
	}
}

// countingReader reports every successful Read's byte count on ch, for
// progress-bar display; it never blocks the underlying copy; a full
// channel simply drops the update.
type countingReader struct {
	r  io.Reader
	ch chan int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 && c.ch != nil {
		select {
		case c.ch <- int64(n):
		default:
		}
	}
	return n, err
}

func progressBar(ctx context.Context, wr io.Writer, ch chan int64, size int64) {
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetBytes64(size),
		progressbar.OptionSetWriter(wr),
		progressbar.OptionSetPredictTime(true))
	bar.RenderBlank()
	for {
		select {
		case n, ok := <-ch:
			if !ok {
				fmt.Fprintf(wr, "\n")
				return
			}
			bar.Add64(n)
		case <-ctx.Done():
			return
		}
	}
}

func openFileOrURL(ctx context.Context, name string) (io.Reader, int64, func(context.Context) error, error) {
	if strings.HasPrefix(name, "http") {
		resp, err := http.Get(name)
		if err != nil {
			return nil, 0, nil, err
		}
		return resp.Body,
			resp.ContentLength,
			func(context.Context) error {
				resp.Body.Close()
				return nil
			},
			err
	}
	info, err := file.Stat(ctx, name)
	if err != nil {
		return nil, 0, nil, err
	}
	f, err := file.Open(ctx, name)
	if err != nil {
		return nil, 0, nil, err
	}
	return f.Reader(ctx), info.Size(), f.Close, nil
}

func createFile(ctx context.Context, name string) (io.Writer, func(context.Context) error, error) {
	if len(name) == 0 {
		return os.Stdout,
			func(context.Context) error { return nil },
			nil
	}
	f, err := file.Create(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return f.Writer(ctx), f.Close, nil
}
