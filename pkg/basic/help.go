package basic

// helpText is printed by the HELP command.
const helpText = `TINY BASIC COMMANDS
  PRINT <item>[, <item>...]        print text and values
  LET <var> = <expr>               assign a value (A..Z)
  INPUT <var>[, <var>...]          read integer values
  IF <expr> <rel> <expr> THEN <stmt>
  GOTO <expr>                      jump to a line
  GOSUB <expr> / RETURN            call and return
  END                              stop the program
  REM <comment>                    comment line
  CLS                              clear the screen
IMMEDIATE COMMANDS
  RUN, LIST, NEW, HELP
  LOAD "NAME", SAVE "NAME"
RELATIONS: = <> < <= > >=
`
