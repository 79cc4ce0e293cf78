/*

Process of compilation

Program Text ->
	scan ->
Tokens (scan) ->
	parse ->
Parse Tree (ast) ->
	front: declare (symtab), check (analyze), emit (gen) ->
Three-Address Code (ir) ->
	render ->
TAC Text

Diagnostics of every stage are collected in one diag.List
and reported in source order.

*/
package compiler
