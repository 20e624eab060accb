// Package expr is the symbolic expression engine behind block assignments.
//
// Expressions are immutable trees over exact rational constants, symbols,
// sums, products, powers and function calls. Every constructor returns a
// canonical form: constants are folded exactly, like terms and like factors
// are collected, and operands are kept in a total order. Two expressions built
// from equivalent polynomial-style formulas therefore compare equal with
// Equal and print identically, which the block compiler relies on when it
// superposes equations and when it compares compiled models.
//
// Formulas are parsed from text with Parse. Hierarchical names such as
// "prey.x" are single symbols. Exponentiation is written pow(base, exp).
//
// An expression is turned into a fast numeric closure with Compile, given a
// fixed ordering of its free symbols and a function table.
package expr
