/*
 * Copyright 2025 The system-properties Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// propdump inspects a property store: it dumps every readable record, reads
// a single name, or reports the routing context for a name.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/feicong/system-properties/sysprop"
)

func main() {
	dir := flag.String("dir", sysprop.DefaultLocation, "property directory or legacy area file")
	name := flag.String("name", "", "read a single property instead of dumping all")
	context := flag.Bool("context", false, "print the routing context for -name")
	flag.Parse()

	store := sysprop.New()
	if err := store.Init(*dir); err != nil {
		fmt.Fprintf(os.Stderr, "propdump: %v\n", err)
		os.Exit(1)
	}

	if *name != "" {
		if *context {
			ctx, err := store.GetContext(*name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "propdump: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%s -> %s\n", *name, ctx)
			return
		}
		pi, err := store.Find(*name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "propdump: %s: %v\n", *name, err)
			os.Exit(1)
		}
		store.ReadCallback(pi, func(n, v string, serial uint32) {
			fmt.Printf("[%s]: [%s] (serial %#x)\n", n, v, serial)
		})
		return
	}

	count := 0
	err := store.Foreach(func(pi *sysprop.PropInfo) {
		store.ReadCallback(pi, func(n, v string, _ uint32) {
			fmt.Printf("[%s]: [%s]\n", n, v)
		})
		count++
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "propdump: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%d properties\n", count)
}
