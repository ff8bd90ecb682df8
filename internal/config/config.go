// Package config loads heapstore options from an INI file.
//
//	[disk]
//	path = heapstore.db
//	initial_pages = 8
//
//	[buffer]
//	frames = 64
//	policy = fifo
//
//	[log]
//	level = info
//	info_log =
//	error_log =
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

// Load reads path over util.DefaultOptions. A missing file yields the defaults.
func Load(path string) (util.Options, error) {
	opts := util.DefaultOptions()
	if path == "" {
		return opts, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return opts, nil
	}

	f, err := ini.Load(path)
	if err != nil {
		return opts, errors.Wrapf(err, "load config %s", path)
	}
	return Parse(f, opts)
}

// LoadBytes parses INI content over util.DefaultOptions.
func LoadBytes(data []byte) (util.Options, error) {
	f, err := ini.Load(data)
	if err != nil {
		return util.DefaultOptions(), errors.Wrap(err, "parse config")
	}
	return Parse(f, util.DefaultOptions())
}

// Parse applies the recognised sections of f to opts.
func Parse(f *ini.File, opts util.Options) (util.Options, error) {
	var err error

	disk := f.Section("disk")
	opts.Path = disk.Key("path").MustString(opts.Path)
	if opts.InitialPages, err = intKey(disk, "initial_pages", opts.InitialPages); err != nil {
		return opts, err
	}
	if opts.InitialPages < 0 {
		return opts, errors.Wrapf(util.ErrInvalidInitialPages, "disk.initial_pages=%d", opts.InitialPages)
	}

	buffer := f.Section("buffer")
	if opts.BufferPoolSize, err = intKey(buffer, "frames", opts.BufferPoolSize); err != nil {
		return opts, err
	}
	if opts.BufferPoolSize <= 0 {
		return opts, errors.Wrapf(util.ErrInvalidPoolSize, "buffer.frames=%d", opts.BufferPoolSize)
	}
	opts.Policy = buffer.Key("policy").MustString(opts.Policy)

	log := f.Section("log")
	opts.LogLevel = log.Key("level").MustString(opts.LogLevel)
	opts.InfoLogPath = log.Key("info_log").MustString(opts.InfoLogPath)
	opts.ErrorLogPath = log.Key("error_log").MustString(opts.ErrorLogPath)

	return opts, nil
}

func intKey(section *ini.Section, name string, def int) (int, error) {
	if !section.HasKey(name) {
		return def, nil
	}
	v, err := section.Key(name).Int()
	if err != nil {
		return def, errors.Wrapf(err, "%s.%s", section.Name(), name)
	}
	return v, nil
}
