/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Sat Mar 24 17:02:31 2018 mstenber
 * Last modified: Sun Mar 25 12:31:09 2018 mstenber
 * Edit time:     71 min
 *
 */

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"

	"github.com/fingon/go-fatfs/codec"
	"github.com/fingon/go-fatfs/fs"
	"github.com/fingon/go-fatfs/mlog"
	"github.com/fingon/go-fatfs/storage"
	"github.com/fingon/go-fatfs/storage/factory"
)

type command struct {
	args     string
	nargs    int
	readOnly bool
	run      func(fm *fs.FileManager, args []string) error
}

var commands = map[string]command{
	"ls": {"<dir>", 1, true, func(fm *fs.FileManager, args []string) error {
		l, err := fm.ListDirectory(args[0])
		if err != nil {
			return err
		}
		for _, d := range l {
			fmt.Println(d)
		}
		return nil
	}},
	"mkdir": {"<dir> <name>", 2, false, func(fm *fs.FileManager, args []string) error {
		_, err := fm.CreateDirectory(args[0], args[1], false)
		return err
	}},
	"touch": {"<dir> <name>", 2, false, func(fm *fs.FileManager, args []string) error {
		_, err := fm.CreateFile(args[0], args[1], false)
		return err
	}},
	"rm": {"<path>", 1, false, func(fm *fs.FileManager, args []string) error {
		return fm.DeleteFile(args[0])
	}},
	"mv": {"<path> <name>", 2, false, func(fm *fs.FileManager, args []string) error {
		_, err := fm.RenameFile(args[0], args[1])
		return err
	}},
	"cat": {"<path>", 1, true, func(fm *fs.FileManager, args []string) error {
		content, err := fm.ReadFile(args[0])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(content)
		return err
	}},
	"write": {"<path> <content|->", 2, false, func(fm *fs.FileManager, args []string) error {
		content := []byte(args[1])
		if args[1] == "-" {
			var err error
			content, err = io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
		}
		return fm.WriteFile(args[0], content)
	}},
	"stat": {"<path>", 1, true, func(fm *fs.FileManager, args []string) error {
		fi, err := fm.Stat(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %v size:%d\n", fi.Path, fi.Descriptor, fi.Size)
		return nil
	}},
	"df": {"", 0, true, func(fm *fs.FileManager, args []string) error {
		ci := fm.CapacityInfo()
		fmt.Printf("total:%d free:%d (%.1f%%) used:%d (%.1f%%)\n",
			ci.Total, ci.Free, ci.FreePercent, ci.Used, ci.UsedPercent)
		return nil
	}},
	"check": {"", 0, true, func(fm *fs.FileManager, args []string) error {
		r, err := fm.Check()
		if err != nil {
			return err
		}
		fmt.Println(r)
		for _, e := range r.Errors {
			fmt.Println(" ", e)
		}
		if !r.OK() {
			return fmt.Errorf("filesystem is inconsistent")
		}
		return nil
	}},
	"mount": {"<mountpoint>", 1, false, func(fm *fs.FileManager, args []string) error {
		server, err := fs.Mount(fm, args[0], mlog.IsEnabled())
		if err != nil {
			return err
		}
		// loop is here
		server.Serve()
		return nil
	}},
}

func format(medium string, config storage.Configuration, cc factory.CodecConfiguration) error {
	c, err := cc.Codec()
	if err != nil {
		return err
	}
	config.Codec = c
	config.Create = true
	m, err := factory.New(medium, config)
	if err != nil {
		return err
	}
	defer m.Close()
	return storage.Format(m)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n\n%s [flags] format\n", os.Args[0])
		for name, c := range commands {
			fmt.Fprintf(os.Stderr, "%s [flags] %s %s\n", os.Args[0], name, c.args)
		}
		fmt.Fprintf(os.Stderr, "\n")
		flag.PrintDefaults()
	}
	medium := flag.String("medium", "file",
		fmt.Sprintf("Medium to use (possible: %v)", factory.List()))
	image := flag.String("image", "fat.img", "Image file (or directory for key-value media)")
	password := flag.String("password", "", "Password (key-value media only; empty disables encryption)")
	salt := flag.String("salt", "salt", "Salt")
	iterations := flag.Int("iterations", 12345, "PBKDF2 iterations")
	compression := flag.String("compression", "",
		fmt.Sprintf("Compression (possible: %v)", codec.Algorithms()))
	cipher := flag.String("cipher", factory.CipherGCM,
		fmt.Sprintf("Cipher (possible: %s, %s)", factory.CipherGCM, factory.CipherSIV))
	cachesize := flag.Int("cachesize", 32, "Number of blocks to cache")
	cpuprofile := flag.String("cpuprofile", "", "CPU profile file")

	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	name := flag.Arg(0)
	args := flag.Args()[1:]
	config := storage.Configuration{Path: *image, CacheSize: *cachesize}
	cc := factory.CodecConfiguration{Password: *password, Salt: *salt,
		Iterations: *iterations, Compression: *compression, Cipher: *cipher}

	if name == "format" {
		if err := format(*medium, config, cc); err != nil {
			log.Fatal(err)
		}
		return
	}
	c, ok := commands[name]
	if !ok || len(args) != c.nargs {
		flag.Usage()
		os.Exit(1)
	}
	config.ReadOnly = c.readOnly
	bs, err := factory.NewBlockStore(*medium, config, cc)
	if err != nil {
		log.Fatal(err)
	}
	fm, err := fs.Open(bs)
	if err != nil {
		bs.Close()
		log.Fatal(err)
	}
	err = c.run(fm, args)
	fm.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
}
