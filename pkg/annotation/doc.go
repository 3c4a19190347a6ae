// Package annotation finds the source annotations that hide coverage.
//
// There are three kinds of ignore.
// 1. Ignore the whole go file.
//    `//+coverlens:ignore:file`
// 2. Ignore a go code block, the lines up to the next blank line.
//    `//+coverlens:ignore:block`
// 3. Ignore a fixed number of lines.
//    `//+coverlens:ignore:3`
//
//   Details starting on an ignored line are dropped before they reach the
//   partitioner, so ignored code shows neither hits nor misses.
//   For example:
//       pf, err := os.Open(fileName)
//       if err != nil {   //+coverlens:ignore:block  -|
// 	         return nil, err                          | -> code block
//       }                                           -|
//
//       defer pf.Close()
package annotation
