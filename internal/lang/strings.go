package lang

var en = map[string]string{
	"pluginname":                     "Subcourse",
	"modulename":                     "Subcourse",
	"view":                           "View",
	"refcoursenull":                  "No referenced course configured",
	"gotorefcourse":                  "Go to %s",
	"gotorefcoursegrader":            "All grades in %s",
	"gotorefcoursemygrades":          "My grades in %s",
	"fetchnow":                       "Fetch grades now",
	"lastfetchnever":                 "The grades have not been fetched yet",
	"lastfetchtime":                  "Last update: %s",
	"currentprogress":                "Your progress %d%%",
	"currentgrade":                   "Current grade: %s",
	"errfetch":                       "Unable to fetch grades: error %s",
	"errlocalremotescale":            "Unable to fetch grades: the referenced course uses a local scale",
	"errnotfound":                    "The activity could not be found",
	"errforbidden":                   "You are not allowed to access this activity",
	"errsesskey":                     "Your session key is invalid or has expired",
	"completioncourse":               "Require course completion",
	"completioncourse_help":          "If enabled, the activity is considered complete when the student completes the referenced course.",
	"completioncourse_text":          "Students must complete the referenced course to complete this activity.",
	"completionrefcourse":            "Require course completion",
	"completionrefcourse_help":       "If enabled, the activity is considered complete when the student completes the referenced course.",
	"completionrefcourse_text":       "Students must complete the referenced course to complete this activity.",
	"settings:coursepageenrol":       "Enrol automatically?",
	"settings:coursepageenrol_desc":  "If checked, the student is enrolled into the target course before being redirected",
	"settings:courseenrolhide":       "Hide this new course?",
	"settings:courseenrolhide_desc":  "If checked, the course is hidden from the My courses page",
	"settings:courseautounhide":      "Unhide the referenced course?",
	"settings:courseautounhide_desc": "If checked, a hidden referenced course is made visible when the activity is viewed",
}

var ptBR = map[string]string{
	"pluginname":                     "Subcurso",
	"modulename":                     "Subcurso",
	"view":                           "Ver",
	"refcoursenull":                  "Nenhum curso referenciado configurado",
	"gotorefcourse":                  "Ir para %s",
	"gotorefcoursegrader":            "Todas as notas em %s",
	"gotorefcoursemygrades":          "Minhas notas em %s",
	"fetchnow":                       "Buscar notas agora",
	"lastfetchnever":                 "As notas ainda não foram buscadas",
	"lastfetchtime":                  "Última atualização: %s",
	"currentprogress":                "Seu progresso %d%%",
	"currentgrade":                   "Nota atual: %s",
	"errfetch":                       "Não foi possível buscar as notas: erro %s",
	"errlocalremotescale":            "Não foi possível buscar as notas: o curso referenciado usa uma escala local",
	"errnotfound":                    "A atividade não foi encontrada",
	"errforbidden":                   "Você não tem permissão para acessar esta atividade",
	"errsesskey":                     "Sua chave de sessão é inválida ou expirou",
	"completioncourse":               "Requer a conclusão do curso",
	"completioncourse_help":          "Se habilitado, a atividade é considerada concluída quando o estudante concluir o curso referenciado.",
	"completioncourse_text":          "Os estudantes devem concluir o curso referenciado para concluir esta atividade.",
	"completionrefcourse":            "Requer a conclusão do curso",
	"completionrefcourse_help":       "Se habilitado, a atividade é considerada concluída quando o estudante concluir o curso referenciado.",
	"completionrefcourse_text":       "Os estudantes devem concluir o curso referenciado para concluir esta atividade.",
	"settings:coursepageenrol":       "Matricular automaticamente?",
	"settings:coursepageenrol_desc":  "Caso marcado, o aluno é matriculado automaticamente no curso de destino antes de ser direcionado",
	"settings:courseenrolhide":       "Ocultar este novo curso?",
	"settings:courseenrolhide_desc":  "Caso marcado, este curso será ocultado da página meus Cursos",
	"settings:courseautounhide":      "Reexibir o curso referenciado?",
	"settings:courseautounhide_desc": "Caso marcado, um curso referenciado oculto fica visível quando a atividade é vista",
}
