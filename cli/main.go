package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"blockfile"
	"blockfile/bucket"
)

var (
	inspect   = flag.String("inspect", "", "print the descriptor of an object file and exit")
	path      = flag.String("path", "", "base path of the block")
	seed      = flag.Uint("seed", 0, "checkpoint root object id to load from")
	rolls     = flag.Int("rolls", 1, "number of rollovers to perform")
	doFlush   = flag.Bool("flush", false, "flush instead of plain rollovers")
	allocSize = flag.Uint("alloc", uint(blockfile.DefaultAllocSize), "allocation size in bytes")
	cacheDir  = flag.String("cache", "", "cache directory of a local bucket backend")
	bucketDir = flag.String("bucket", "", "bucket directory of a local bucket backend")
)

func main() {
	flag.Parse()

	if *inspect != "" {
		desc, err := blockfile.ReadDescriptor(*inspect)
		if err != nil {
			log.WithError(err).Fatal("cannot read descriptor")
		}
		fmt.Printf("magic:       %#x\nversion:     %d\ncompression: %d\nalloc size:  %d\nobject id:   %d\nchecksum:    %#x\n",
			desc.Magic, desc.Version, desc.Compression, desc.AllocSize, desc.ObjectID, desc.Checksum)
		return
	}

	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	options := *blockfile.DefaultOptions
	options.AllocSize = uint32(*allocSize)
	if *cacheDir != "" && *bucketDir != "" {
		storage, err := bucket.NewLocalStorage(*cacheDir, *bucketDir)
		if err != nil {
			log.WithError(err).Fatal("cannot set up bucket backend")
		}
		options.Storage = storage
	}

	block, err := blockfile.Open(*path, 0o644, &options)
	if err != nil {
		log.WithError(err).Fatal("cannot open block")
	}
	defer block.Close()

	if err := block.Load(blockfile.Checkpoint{RootObjectID: blockfile.ObjectID(*seed)}); err != nil {
		log.WithError(err).Fatal("cannot load block")
	}
	fmt.Printf("loaded %s, object id %d\n", block.Name(), block.ObjectID())

	for i := 0; i < *rolls; i++ {
		if *doFlush {
			cookie, err := block.Flush()
			if err != nil {
				log.WithError(err).Fatal("flush failed")
			}
			fmt.Printf("flushed object %d (%d bytes), now at object %d\n", cookie.ObjectID, cookie.Size, block.ObjectID())
			continue
		}
		if err := block.RollToNewFile(); err != nil {
			log.WithError(err).Fatal("rollover failed")
		}
		fmt.Printf("rolled to object %d\n", block.ObjectID())
	}
}
