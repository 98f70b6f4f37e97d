// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// ignitemarshal is a diagnostic tool for the binary object marshaller:
// it prints descriptor layouts for sample types, the wire tag table, and
// the header of a serialized blob.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	ignite "github.com/shirley02101175/ignite"
)

var rootCmd = &cobra.Command{
	Use:   "ignitemarshal",
	Short: "diagnostics for the optimized binary object marshaller",
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "print the wire tag table",
	Run: func(cmd *cobra.Command, args []string) {
		for t := ignite.NullTag; t <= ignite.SerializableTag; t++ {
			fmt.Printf("%3d  %s\n", uint8(t), t)
		}
	},
}

// demo types exercised by the describe command.

type demoAddress struct {
	City   string
	Street string
	Zip    int32
}

func (demoAddress) Serializable() {}

type demoPerson struct {
	demoAddress
	Name    string
	Age     int32
	Balance float64
	Secret  string `ignite:"-"`
}

func (demoPerson) Serializable() {}

type demoState int32

func (s demoState) EnumOrdinal() int32 { return int32(s) }

func (demoState) EnumNames() []string { return []string{"NEW", "ACTIVE", "RETIRED"} }

type demoCustom struct {
	Payload []byte
}

func (demoCustom) Serializable() {}

func (c *demoCustom) WriteObject(out *ignite.Output) error { return out.WriteBytes(c.Payload) }
func (c *demoCustom) ReadObject(in *ignite.Input) error {
	p, err := in.ReadBytes()
	c.Payload = p
	return err
}

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "build and print descriptors for the built-in sample types",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := ignite.New(ignite.WithIndexingHandler(ignite.NewIndexingHandler()))
		if err != nil {
			return err
		}
		for _, sample := range []any{demoAddress{}, demoPerson{}, demoCustom{}, demoState(0)} {
			d, err := m.Describe(sample)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", d.TypeName())
			fmt.Printf("  tag        %s\n", d.WireTag())
			fmt.Printf("  type id    %d\n", d.TypeID())
			fmt.Printf("  checksum   %04x\n", d.Checksum())
			fmt.Printf("  indexable  %v\n", d.Indexable())
			for _, f := range d.Fields() {
				fmt.Printf("  field      %-12s %s\n", f.Name, f.Kind)
			}
			for ord, name := range d.EnumNames() {
				fmt.Printf("  constant   %d=%s\n", ord, name)
			}
		}
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "print the header of a serialized blob",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return fmt.Errorf("empty blob")
		}
		tag := ignite.Tag(data[0])
		fmt.Printf("length  %d\n", len(data))
		fmt.Printf("tag     %s\n", tag)
		switch tag {
		case ignite.SerializableTag, ignite.ExternalizableTag, ignite.MarshalAwareTag, ignite.EnumTag, ignite.ClassTag:
			buf := ignite.NewInBuffer(data[1:])
			id, err := buf.ReadUint32()
			if err != nil {
				return err
			}
			if id == 0 {
				name, err := buf.ReadString()
				if err != nil {
					return err
				}
				fmt.Printf("type    %s (inline name)\n", name)
			} else {
				fmt.Printf("type    id %d\n", id)
			}
			switch tag {
			case ignite.SerializableTag, ignite.ExternalizableTag, ignite.MarshalAwareTag:
				sum, err := buf.ReadUint16()
				if err != nil {
					return err
				}
				fmt.Printf("schema  %04x\n", sum)
			}
		}
		return nil
	},
}

func main() {
	rootCmd.AddCommand(tagsCmd, describeCmd, inspectCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
