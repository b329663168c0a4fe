/*
Package expr parses the content of expressions: SQL fragments holding brace
placeholders that stand for arguments, entity properties and column
aliases.

The parser only processes information encoded in the syntax of the
content. It produces a Template, a list of parts that is later resolved
against the tables of a statement. The placeholders are:

	{}         the next argument of the expression
	{name}     a property of the main table, or a column alias "A_name"
	{A.name}   a property of the table with alias A
	{#name}    the value of a property of the current entity

Text inside quoted strings and comments is passed through verbatim.
Templates are cached by content, so each distinct content is parsed once.
*/
package expr
