package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/bietkhonhungvandi212/heapstore/internal/config"
	"github.com/bietkhonhungvandi212/heapstore/internal/logger"
	"github.com/bietkhonhungvandi212/heapstore/internal/storage/buffer"
	"github.com/bietkhonhungvandi212/heapstore/internal/storage/file"
	"github.com/bietkhonhungvandi212/heapstore/internal/storage/heap"
	"github.com/bietkhonhungvandi212/heapstore/internal/storage/page"
	util "github.com/bietkhonhungvandi212/heapstore/internal/utils"
)

func main() {
	configPath := flag.String("config", "heapstore.ini", "path to the ini configuration")
	records := flag.Int("records", 1000, "number of synthetic records to insert")
	flag.Parse()

	if err := run(*configPath, *records); err != nil {
		fmt.Fprintf(os.Stderr, "heapstore: %+v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, records int) error {
	opts, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.InitLogger(logger.LogConfig{
		LogLevel:     opts.LogLevel,
		InfoLogPath:  opts.InfoLogPath,
		ErrorLogPath: opts.ErrorLogPath,
	}); err != nil {
		return err
	}

	policy, err := buffer.ParsePolicy(opts.Policy)
	if err != nil {
		return err
	}

	fm, err := file.NewFileManager(opts.Path, opts.InitialPages)
	if err != nil {
		return err
	}
	defer fm.Close()

	bp, err := buffer.NewBufferPool(opts.BufferPoolSize, policy, fm)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"path":   opts.Path,
		"frames": bp.Size(),
		"policy": policy,
		"cache":  humanize.IBytes(uint64(bp.Size() * util.PageSize)),
	}).Info("buffer pool ready")

	hf := heap.NewHeapFile("", bp)
	defer hf.Close()

	rids := make([]page.RID, 0, records)
	for i := 0; i < records; i++ {
		rid, err := hf.InsertRecord([]byte(fmt.Sprintf("record %d: %s", i, humanize.Comma(int64(i)*7919))))
		if err != nil {
			return err
		}
		rids = append(rids, rid)
	}
	for i := 0; i < len(rids); i += 3 {
		if err := hf.DeleteRecord(rids[i]); err != nil {
			return err
		}
	}
	logger.Infof("inserted %s records, %s remain on %s pages",
		humanize.Comma(int64(records)), humanize.Comma(int64(hf.RecordCount())), humanize.Comma(int64(hf.PageCount())))

	scan, err := hf.OpenScan()
	if err != nil {
		return err
	}
	scanned, scannedBytes := 0, 0
	for scan.HasNext() {
		rec, err := scan.GetNext(nil)
		if err != nil {
			scan.Close()
			return err
		}
		scanned++
		scannedBytes += len(rec)
	}
	if err := scan.Close(); err != nil {
		return err
	}
	if scanned != hf.RecordCount() {
		logger.Warnf("scan returned %d records, file counts %d", scanned, hf.RecordCount())
	}

	if err := bp.FlushAll(); err != nil {
		return err
	}

	s := bp.Stats()
	fmt.Printf("%s\n", hf)
	fmt.Printf("scanned     %s records (%s)\n", humanize.Comma(int64(scanned)), humanize.IBytes(uint64(scannedBytes)))
	fmt.Printf("frames      %d (%d unpinned, %d resident, %d dirty)\n", s.Frames, s.Unpinned, s.Resident, s.Dirty)
	fmt.Printf("hits        %s\n", humanize.Comma(int64(s.Hits)))
	fmt.Printf("misses      %s\n", humanize.Comma(int64(s.Misses)))
	fmt.Printf("hit ratio   %s%%\n", humanize.FormatFloat("#.##", s.HitRatio()*100))
	fmt.Printf("evictions   %s\n", humanize.Comma(int64(s.Evictions)))
	fmt.Printf("write-backs %s (%s)\n", humanize.Comma(int64(s.WriteBacks)), humanize.IBytes(s.WriteBacks*util.PageSize))
	fmt.Printf("disk reads  %s (%s)\n", humanize.Comma(int64(s.DiskReads)), humanize.IBytes(s.DiskReads*util.PageSize))
	return nil
}
