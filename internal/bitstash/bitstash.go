// Package bitstash packs integer fields of known maximum value into a single
// 64-bit accumulator, right to left.
//
// The accumulator works like a stack growing from the low bits: AddToRight
// shifts the existing contents left by the field's width and ORs the new
// value in, TakeFromRight pops the low field back out. A value's width is
// always derived from the field's declared maximum, never from the value
// itself, so pack and unpack agree on the layout.
//
// All functions are pure integer math and cannot fail. Overflowing the
// accumulator past 64 bits is a caller bug and is not detected.
package bitstash

import "math/bits"

// NumberOfBits returns the smallest width n in 1..64 such that maxValue fits
// in n bits (maxValue <= 2^n - 1). A maxValue of 0 still occupies one bit.
func NumberOfBits(maxValue uint64) uint {
	if maxValue == 0 {
		return 1
	}
	return uint(bits.Len64(maxValue))
}

// MaxValueForBits returns the largest value representable in n bits
// (2^n - 1). Widths above 64 are capped to 64.
//
// Round-trip law: NumberOfBits(MaxValueForBits(n)) == n for n in 1..64.
func MaxValueForBits(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << n) - 1
}

// AddToRight shifts acc left by the width of rightMax and ORs value into the
// vacated low bits.
//
// Precondition: value <= rightMax. A larger value would bleed into the
// neighbouring field; the caller must validate before packing.
func AddToRight(acc, value, rightMax uint64) uint64 {
	return acc<<NumberOfBits(rightMax) | value
}

// TakeFromRight extracts the low field of width NumberOfBits(rightMax) from
// acc. It returns the accumulator with the field shifted out and the field's
// value, inverting AddToRight.
func TakeFromRight(acc, rightMax uint64) (rest, value uint64) {
	width := NumberOfBits(rightMax)
	return acc >> width, acc & MaxValueForBits(width)
}

// Read returns the bitWidth-wide field located shiftFromRight bits above the
// low end of acc, without modifying the accumulator.
func Read(acc uint64, bitWidth, shiftFromRight uint) uint64 {
	return (acc >> shiftFromRight) & MaxValueForBits(bitWidth)
}
